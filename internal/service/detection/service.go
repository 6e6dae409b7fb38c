package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/service/timezone"
	"github.com/regionsvc/region-api/pkg/metrics"
)

// NetworkProber is the racing IP-geolocation tier. Detect returns nil
// when the tier is unavailable.
type NetworkProber interface {
	Detect(ctx context.Context) *model.RegionDetectionResult
	QuickDetect(ctx context.Context) model.RegionCode
}

// TimezoneSource resolves the device/platform timezone identifier.
type TimezoneSource func() string

// SystemTimezone reads the process-local timezone.
func SystemTimezone() string {
	return time.Local.String()
}

// Service orchestrates the four-tier detection waterfall:
// cache, timezone inference, network race, static default. Each tier
// is attempted only if the previous yielded nothing usable.
type Service struct {
	cache      *Cache
	classifier *timezone.Classifier
	tzSource   TimezoneSource
	network    NetworkProber
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewService(cache *Cache, classifier *timezone.Classifier, tzSource TimezoneSource, network NetworkProber, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if tzSource == nil {
		tzSource = SystemTimezone
	}
	return &Service{
		cache:      cache,
		classifier: classifier,
		tzSource:   tzSource,
		network:    network,
		metrics:    m,
		logger:     logger,
	}
}

// DetectRegion always resolves to a valid result; failures degrade
// confidence instead of propagating. Unexpected panics from any tier
// are converted into the default shape with low confidence and the
// failure message attached.
func (s *Service) DetectRegion(ctx context.Context) (result model.RegionDetectionResult) {
	start := time.Now()
	defer func() {
		s.metrics.DetectionDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("region detection failed")
			result = defaultResult()
			result.Confidence = model.ConfidenceLow
			result.Error = fmt.Sprintf("%v", r)
			s.cache.Set(ctx, result)
			s.metrics.DetectionTotal.WithLabelValues("error").Inc()
		}
	}()

	// Tier 1: cache, returned with its original method tag.
	if cached := s.cache.Get(ctx); cached != nil {
		s.logger.Debug().Str("method", string(cached.Method)).Msg("using cached detection result")
		s.metrics.DetectionTotal.WithLabelValues(string(model.MethodCache)).Inc()
		return *cached
	}

	// Tier 2: timezone inference, accepted only at high confidence.
	tz := s.classifier.Classify(s.tzSource())
	if tz.Confidence == model.ConfidenceHigh {
		s.logger.Debug().Str("region", string(tz.Region)).Msg("timezone inference accepted")
		s.cache.Set(ctx, tz)
		s.metrics.DetectionTotal.WithLabelValues(string(model.MethodTimezone)).Inc()
		return tz
	}

	// Tier 3: racing network probe. A nil result means the tier is
	// unavailable, not an error.
	if ip := s.network.Detect(ctx); ip != nil && ip.Confidence != model.ConfidenceLow {
		s.cache.Set(ctx, *ip)
		s.metrics.DetectionTotal.WithLabelValues(string(model.MethodIP)).Inc()
		return *ip
	}

	// Tier 4: static default, cached so repeated calls within the TTL
	// short-circuit at tier 1 instead of re-probing.
	def := defaultResult()
	s.logger.Debug().Msg("falling back to default region")
	s.cache.Set(ctx, def)
	s.metrics.DetectionTotal.WithLabelValues(string(model.MethodDefault)).Inc()
	return def
}

// QuickDetect runs only the network probe and returns a bare region
// code, for callers that value latency over provenance.
func (s *Service) QuickDetect(ctx context.Context) model.RegionCode {
	return s.network.QuickDetect(ctx)
}

// PreDetect runs the full waterfall once to warm the cache, swallowing
// every error. Intended to be launched in the background at startup.
func (s *Service) PreDetect(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Msg("pre-detection failed")
		}
	}()
	result := s.DetectRegion(ctx)
	s.logger.Info().
		Str("region", string(result.Region)).
		Str("confidence", string(result.Confidence)).
		Str("method", string(result.Method)).
		Msg("pre-detection complete")
}

// ClearCache removes the cached detection result.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

// CachedResult returns the in-memory cached result without any I/O.
func (s *Service) CachedResult() *model.RegionDetectionResult {
	return s.cache.Cached()
}

func defaultResult() model.RegionDetectionResult {
	return model.RegionDetectionResult{
		Region:     model.RegionZH,
		Confidence: model.ConfidenceMedium,
		Method:     model.MethodDefault,
		Location:   &model.Location{Country: "China"},
	}
}
