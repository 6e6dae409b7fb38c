package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/regionsvc/region-api/internal/config"
	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/pkg/circuitbreaker"
	"github.com/regionsvc/region-api/pkg/metrics"
)

const userAgent = "region-api/1.0"

// provider is one configured geolocation endpoint with its own
// normalizer, breaker and outbound rate limiter.
type provider struct {
	name      string
	url       string
	normalize Normalizer
	breaker   *circuitbreaker.CircuitBreaker
	limiter   *rate.Limiter
}

// NetworkProbe races the configured providers concurrently and
// resolves on the first parseable success, or nothing once the global
// deadline elapses. Losing in-flight requests are abandoned, not
// cancelled.
type NetworkProbe struct {
	providers []provider
	client    *http.Client
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewNetworkProbe(cfgs []config.ProviderConfig, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *NetworkProbe {
	if timeout <= 0 {
		timeout = time.Second
	}
	providers := make([]provider, 0, len(cfgs))
	for _, c := range cfgs {
		providers = append(providers, provider{
			name:      c.Name,
			url:       c.URL,
			normalize: NormalizerFor(c.Format),
			breaker: circuitbreaker.New(circuitbreaker.Settings{
				Name:        c.Name,
				MaxFailures: 5,
				Timeout:     time.Minute,
			}),
			limiter: rate.NewLimiter(rate.Limit(2), 5),
		})
	}
	return &NetworkProbe{
		providers: providers,
		client:    &http.Client{Timeout: 3 * time.Second},
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Detect returns nil when no provider produced a usable response
// before the deadline; callers treat that as "tier unavailable".
func (p *NetworkProbe) Detect(ctx context.Context) *model.RegionDetectionResult {
	if len(p.providers) == 0 {
		return nil
	}

	results := make(chan GeoLocation, len(p.providers))
	for i := range p.providers {
		prov := &p.providers[i]
		go func() {
			loc, err := p.query(ctx, prov)
			if err != nil {
				p.logger.Debug().Err(err).Str("provider", prov.name).Msg("provider query failed")
				return
			}
			results <- loc
		}()
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case loc := <-results:
		result := p.classify(loc)
		return &result
	case <-timer.C:
		p.logger.Debug().Dur("timeout", p.timeout).Msg("all providers timed out")
		return nil
	case <-ctx.Done():
		return nil
	}
}

// QuickDetect queries only the first configured provider and returns a
// bare region code, defaulting to zh on any failure.
func (p *NetworkProbe) QuickDetect(ctx context.Context) model.RegionCode {
	if len(p.providers) == 0 {
		return model.RegionZH
	}
	loc, err := p.query(ctx, &p.providers[0])
	if err != nil {
		return model.RegionZH
	}
	return p.classify(loc).Region
}

func (p *NetworkProbe) query(ctx context.Context, prov *provider) (GeoLocation, error) {
	if !prov.limiter.Allow() {
		p.metrics.ProbeRequests.WithLabelValues(prov.name, "throttled").Inc()
		return GeoLocation{}, fmt.Errorf("provider %s throttled", prov.name)
	}

	var loc GeoLocation
	start := time.Now()
	err := prov.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, prov.url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("provider %s returned status %d", prov.name, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return err
		}

		loc, err = prov.normalize(body)
		return err
	})

	p.metrics.ProbeDuration.WithLabelValues(prov.name).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.ProbeRequests.WithLabelValues(prov.name, "error").Inc()
		return GeoLocation{}, err
	}
	p.metrics.ProbeRequests.WithLabelValues(prov.name, "ok").Inc()
	return loc, nil
}

func (p *NetworkProbe) classify(loc GeoLocation) model.RegionDetectionResult {
	isChina := loc.CountryCode == "CN"

	result := model.RegionDetectionResult{
		Region:     model.RegionEN,
		Confidence: model.ConfidenceMedium,
		Method:     model.MethodIP,
		Location: &model.Location{
			Country: firstNonEmpty(loc.CountryName, loc.CountryCode, "Unknown"),
			City:    loc.City,
		},
	}
	if isChina {
		result.Region = model.RegionZH
		result.Confidence = model.ConfidenceHigh
	}
	if loc.Latitude != 0 || loc.Longitude != 0 {
		result.Location.Coordinates = &model.Coordinates{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		}
	}
	return result
}
