package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/service/geofence"
)

// PermissionStatus mirrors the platform location-permission states.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Position is a device location fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// LocationProvider is the platform geolocation collaborator: a
// permission check plus a low-accuracy position fetch.
type LocationProvider interface {
	PermissionStatus(ctx context.Context) (PermissionStatus, error)
	CurrentPosition(ctx context.Context) (Position, error)
}

// GeoProbe is the optional device-location detection path. It is
// invoked separately from the primary detection waterfall.
type GeoProbe struct {
	provider LocationProvider
	fence    *geofence.Classifier
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewGeoProbe(provider LocationProvider, fence *geofence.Classifier, timeout time.Duration, logger zerolog.Logger) *GeoProbe {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GeoProbe{
		provider: provider,
		fence:    fence,
		timeout:  timeout,
		logger:   logger,
	}
}

// Detect returns nil without prompting when permission is denied, and
// nil on timeout or any position error.
func (g *GeoProbe) Detect(ctx context.Context) *model.RegionDetectionResult {
	if g.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	status, err := g.provider.PermissionStatus(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("location permission check failed")
		return nil
	}
	if status == PermissionDenied {
		g.logger.Debug().Msg("location permission denied, skipping gps detection")
		return nil
	}

	pos, err := g.provider.CurrentPosition(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("position fetch failed or timed out")
		return nil
	}

	result := g.DetectAt(pos.Latitude, pos.Longitude)
	if result.Location != nil && pos.Address != "" {
		result.Location.City = pos.Address
	}
	return result
}

// DetectAt classifies already-fetched coordinates, for callers that
// obtained a fix on the device side.
func (g *GeoProbe) DetectAt(lat, lon float64) *model.RegionDetectionResult {
	inChina := g.fence.InChina(lat, lon)

	region := model.RegionEN
	country := "Other"
	if inChina {
		region = model.RegionZH
		country = "China"
	}

	return &model.RegionDetectionResult{
		Region:     region,
		Confidence: model.ConfidenceHigh,
		Method:     model.MethodGPS,
		Location: &model.Location{
			Country: country,
			Coordinates: &model.Coordinates{
				Latitude:  lat,
				Longitude: lon,
			},
		},
	}
}
