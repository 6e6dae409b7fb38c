package preference

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/pkg/metrics"
)

// MismatchResult describes the divergence between the detected
// location and the user's configured region.
type MismatchResult struct {
	HasMismatch    bool              `json:"has_mismatch"`
	CurrentRegion  *model.UserRegion `json:"current_region,omitempty"`
	SettingsRegion *model.UserRegion `json:"settings_region,omitempty"`
	ShouldAlert    bool              `json:"should_alert"`
}

// Reconciler compares a fresh detection against the stored preference
// and rate-limits user-facing alerts with a cooldown window.
type Reconciler struct {
	prefs    *Service
	detector Detector
	cooldown time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewReconciler(prefs *Service, detector Detector, cooldown time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Reconciler {
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return &Reconciler{
		prefs:    prefs,
		detector: detector,
		cooldown: cooldown,
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

// CheckLocationMismatch runs a fresh detection and compares it against
// the configured region. Without an initialized record there is
// nothing to compare, so it reports no mismatch. ShouldAlert stays
// false while the cooldown window from the last acknowledged alert is
// open; a missing alert timestamp counts as the epoch, so the first
// mismatch always alerts.
func (r *Reconciler) CheckLocationMismatch(ctx context.Context) MismatchResult {
	prefs := r.prefs.Get(ctx)
	if prefs == nil {
		r.metrics.MismatchChecks.WithLabelValues("uninitialized").Inc()
		return MismatchResult{}
	}

	detected := r.detector.DetectRegion(ctx).Region.UserRegion()
	settings := prefs.CurrentRegion

	if detected == settings {
		r.metrics.MismatchChecks.WithLabelValues("match").Inc()
		return MismatchResult{
			CurrentRegion:  &detected,
			SettingsRegion: &settings,
		}
	}

	elapsed := r.now().UnixMilli() - prefs.LastMismatchAlert
	shouldAlert := elapsed > r.cooldown.Milliseconds()

	r.metrics.MismatchChecks.WithLabelValues("mismatch").Inc()
	r.logger.Info().
		Str("detected", string(detected)).
		Str("settings", string(settings)).
		Bool("should_alert", shouldAlert).
		Msg("region mismatch detected")

	return MismatchResult{
		HasMismatch:    true,
		CurrentRegion:  &detected,
		SettingsRegion: &settings,
		ShouldAlert:    shouldAlert,
	}
}

// AcknowledgeAlert stamps the cooldown clock after an alert was shown.
func (r *Reconciler) AcknowledgeAlert(ctx context.Context) {
	r.prefs.UpdateMismatchAlertTime(ctx)
}
