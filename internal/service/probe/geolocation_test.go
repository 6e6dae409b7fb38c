package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/service/geofence"
)

type stubLocationProvider struct {
	status    PermissionStatus
	statusErr error
	pos       Position
	posErr    error
	delay     time.Duration
}

func (s *stubLocationProvider) PermissionStatus(ctx context.Context) (PermissionStatus, error) {
	return s.status, s.statusErr
}

func (s *stubLocationProvider) CurrentPosition(ctx context.Context) (Position, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Position{}, ctx.Err()
		}
	}
	return s.pos, s.posErr
}

func newGeoProbe(provider LocationProvider, timeout time.Duration) *GeoProbe {
	return NewGeoProbe(provider, geofence.New(zerolog.Nop()), timeout, zerolog.Nop())
}

func TestGeoProbeDetectInChina(t *testing.T) {
	p := newGeoProbe(&stubLocationProvider{
		status: PermissionGranted,
		pos:    Position{Latitude: 39.9042, Longitude: 116.4074},
	}, time.Second)

	result := p.Detect(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, model.RegionZH, result.Region)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, model.MethodGPS, result.Method)
	assert.Equal(t, "China", result.Location.Country)
}

func TestGeoProbeDetectOutsideChina(t *testing.T) {
	p := newGeoProbe(&stubLocationProvider{
		status: PermissionGranted,
		pos:    Position{Latitude: 40.7128, Longitude: -74.0060, Address: "New York"},
	}, time.Second)

	result := p.Detect(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, model.RegionEN, result.Region)
	assert.Equal(t, "Other", result.Location.Country)
	assert.Equal(t, "New York", result.Location.City)
}

func TestGeoProbePermissionDenied(t *testing.T) {
	p := newGeoProbe(&stubLocationProvider{status: PermissionDenied}, time.Second)
	assert.Nil(t, p.Detect(context.Background()))
}

func TestGeoProbePositionTimeout(t *testing.T) {
	p := newGeoProbe(&stubLocationProvider{
		status: PermissionGranted,
		delay:  time.Second,
	}, 50*time.Millisecond)

	assert.Nil(t, p.Detect(context.Background()))
}

func TestGeoProbePositionError(t *testing.T) {
	p := newGeoProbe(&stubLocationProvider{
		status: PermissionGranted,
		posErr: errors.New("no fix"),
	}, time.Second)

	assert.Nil(t, p.Detect(context.Background()))
}

func TestGeoProbeNilProvider(t *testing.T) {
	p := newGeoProbe(nil, time.Second)
	assert.Nil(t, p.Detect(context.Background()))
}
