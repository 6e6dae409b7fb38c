package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KVStore.Get for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the generic persisted key-value collaborator backing the
// detection cache and the preference store. Values are opaque strings;
// callers own serialization.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
