package preference

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/repository"
	apperrors "github.com/regionsvc/region-api/pkg/errors"
	"github.com/regionsvc/region-api/pkg/metrics"
)

const (
	prefsKey  = "region:user:preferences"
	mirrorKey = "preferences"
)

// Detector provides a fresh region detection; it never fails.
type Detector interface {
	DetectRegion(ctx context.Context) model.RegionDetectionResult
}

// Service owns the persisted user region preference record. One
// logical user/device owns each record; there is no multi-writer
// coordination. Persisted-write failures are logged and swallowed, so
// mutations never fail for storage reasons; the only checked error is
// NotInitialized from mutators that require an existing record.
type Service struct {
	store    repository.KVStore
	detector Detector
	mirror   *gocache.Cache
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(store repository.KVStore, detector Detector, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		detector: detector,
		mirror:   gocache.New(gocache.NoExpiration, 0),
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

// Initialize creates the preference record on first call and is an
// idempotent no-op afterwards. The region comes from detected when
// supplied, otherwise from a fresh detection.
func (s *Service) Initialize(ctx context.Context, detected *model.RegionCode) model.UserRegionPreferences {
	if existing := s.Get(ctx); existing != nil {
		s.logger.Debug().Msg("region preferences already initialized")
		return *existing
	}

	var code model.RegionCode
	if detected != nil {
		code = *detected
	} else {
		code = s.detector.DetectRegion(ctx).Region
	}
	region := code.UserRegion()

	prefs := model.UserRegionPreferences{
		CurrentRegion:        region,
		RegistrationRegion:   region,
		PrivacySignedRegions: []model.UserRegion{},
		IsManuallySet:        false,
	}
	s.save(ctx, &prefs)
	s.logger.Info().Str("region", string(region)).Msg("initialized region preferences")
	return prefs
}

// Get returns the record or nil. A structurally invalid stored record
// is treated as absent, forcing re-initialization rather than
// propagating corrupt state.
func (s *Service) Get(ctx context.Context) *model.UserRegionPreferences {
	if v, ok := s.mirror.Get(mirrorKey); ok {
		if prefs, ok := v.(model.UserRegionPreferences); ok {
			return &prefs
		}
	}

	raw, err := s.store.Get(ctx, prefsKey)
	if err != nil {
		if err != repository.ErrKeyNotFound {
			s.logger.Warn().Err(err).Msg("failed to read region preferences")
		}
		return nil
	}

	var prefs model.UserRegionPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		s.logger.Warn().Err(err).Msg("malformed region preferences, treating as absent")
		return nil
	}
	if !prefs.Valid() {
		s.logger.Warn().Msg("incomplete region preferences, re-initialization required")
		return nil
	}

	s.mirror.Set(mirrorKey, prefs, gocache.NoExpiration)
	return &prefs
}

// UpdateCurrentRegion sets the active region and marks it as a manual
// override. Requires an existing record.
func (s *Service) UpdateCurrentRegion(ctx context.Context, region model.UserRegion) (*model.UserRegionPreferences, error) {
	if !region.Valid() {
		return nil, apperrors.BadRequest("invalid region", nil)
	}
	prefs := s.Get(ctx)
	if prefs == nil {
		return nil, apperrors.NotInitialized()
	}

	prefs.CurrentRegion = region
	prefs.IsManuallySet = true
	s.save(ctx, prefs)
	s.logger.Info().Str("region", string(region)).Msg("user region updated")
	return prefs, nil
}

// MarkPrivacySigned records the privacy sign-off for a region.
// Signing an already-signed region is a no-op.
func (s *Service) MarkPrivacySigned(ctx context.Context, region model.UserRegion) (*model.UserRegionPreferences, error) {
	if !region.Valid() {
		return nil, apperrors.BadRequest("invalid region", nil)
	}
	prefs := s.Get(ctx)
	if prefs == nil {
		return nil, apperrors.NotInitialized()
	}

	if prefs.HasSigned(region) {
		return prefs, nil
	}
	prefs.PrivacySignedRegions = append(prefs.PrivacySignedRegions, region)
	s.save(ctx, prefs)
	s.logger.Info().Str("region", string(region)).Msg("privacy terms signed")
	return prefs, nil
}

// HasSignedPrivacyFor reports whether the user signed the privacy
// terms for region; false when uninitialized.
func (s *Service) HasSignedPrivacyFor(ctx context.Context, region model.UserRegion) bool {
	return s.Get(ctx).HasSigned(region)
}

// UpdateMismatchAlertTime stamps the mismatch-alert cooldown clock.
// Callers invoke it after presenting an alert, not before.
func (s *Service) UpdateMismatchAlertTime(ctx context.Context) {
	prefs := s.Get(ctx)
	if prefs == nil {
		return
	}
	prefs.LastMismatchAlert = s.now().UnixMilli()
	s.save(ctx, prefs)
}

// Clear deletes the persisted record and the in-memory mirror.
func (s *Service) Clear(ctx context.Context) {
	if err := s.store.Remove(ctx, prefsKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear region preferences")
	}
	s.mirror.Delete(mirrorKey)
}

// CurrentRegion returns the active region, defaulting to China when
// uninitialized.
func (s *Service) CurrentRegion(ctx context.Context) model.UserRegion {
	if prefs := s.Get(ctx); prefs != nil {
		return prefs.CurrentRegion
	}
	return model.RegionChina
}

// RegistrationRegion returns the region frozen at initialization,
// defaulting to China when uninitialized.
func (s *Service) RegistrationRegion(ctx context.Context) model.UserRegion {
	if prefs := s.Get(ctx); prefs != nil {
		return prefs.RegistrationRegion
	}
	return model.RegionChina
}

// IsManuallySet reports whether the user explicitly overrode the
// region.
func (s *Service) IsManuallySet(ctx context.Context) bool {
	if prefs := s.Get(ctx); prefs != nil {
		return prefs.IsManuallySet
	}
	return false
}

// Export serializes the record for backup or debugging.
func (s *Service) Export(ctx context.Context) (string, error) {
	prefs := s.Get(ctx)
	if prefs == nil {
		return "", apperrors.NotFound("region preferences", nil)
	}
	raw, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return string(raw), nil
}

// Import restores a previously exported record after validating it.
func (s *Service) Import(ctx context.Context, data string) error {
	var prefs model.UserRegionPreferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return apperrors.BadRequest("invalid preferences payload", err)
	}
	prefs.LastUpdated = s.now().UnixMilli()
	if !prefs.Valid() {
		return apperrors.BadRequest("incomplete preferences payload", nil)
	}
	s.save(ctx, &prefs)
	return nil
}

// save bumps LastUpdated, refreshes the mirror and persists the
// record. Storage failures cost only a future re-read, never the
// logical operation.
func (s *Service) save(ctx context.Context, prefs *model.UserRegionPreferences) {
	prefs.LastUpdated = s.now().UnixMilli()
	s.mirror.Set(mirrorKey, *prefs, gocache.NoExpiration)

	raw, err := json.Marshal(prefs)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode region preferences")
		return
	}
	if err := s.store.Set(ctx, prefsKey, string(raw)); err != nil {
		s.metrics.StoreOperations.WithLabelValues("set", "error").Inc()
		s.logger.Warn().Err(err).Msg("failed to persist region preferences")
		return
	}
	s.metrics.StoreOperations.WithLabelValues("set", "ok").Inc()
}
