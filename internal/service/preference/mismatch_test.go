package preference

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regionsvc/region-api/internal/model"
	"github.com/regionsvc/region-api/internal/repository/memory"
	"github.com/regionsvc/region-api/pkg/metrics"
)

func newReconciler(detected model.RegionCode) (*Reconciler, *Service) {
	detector := &stubDetector{region: detected}
	prefs := NewService(memory.NewStore(), detector, metrics.New("test"), zerolog.Nop())
	rec := NewReconciler(prefs, detector, 24*time.Hour, metrics.New("test"), zerolog.Nop())
	return rec, prefs
}

func TestMismatchWithoutRecord(t *testing.T) {
	rec, _ := newReconciler(model.RegionEN)

	result := rec.CheckLocationMismatch(context.Background())
	assert.False(t, result.HasMismatch)
	assert.False(t, result.ShouldAlert)
	assert.Nil(t, result.CurrentRegion)
}

func TestMismatchWhenRegionsAgree(t *testing.T) {
	rec, prefs := newReconciler(model.RegionZH)
	ctx := context.Background()

	prefs.Initialize(ctx, nil)
	result := rec.CheckLocationMismatch(ctx)
	assert.False(t, result.HasMismatch)
	assert.False(t, result.ShouldAlert)
	require.NotNil(t, result.CurrentRegion)
	assert.Equal(t, model.RegionChina, *result.CurrentRegion)
}

func TestMismatchAlertCooldown(t *testing.T) {
	rec, prefs := newReconciler(model.RegionEN)
	ctx := context.Background()

	// Configured for China while detection says USA.
	code := model.RegionZH
	prefs.Initialize(ctx, &code)

	base := time.Now()
	rec.now = func() time.Time { return base }
	prefs.now = func() time.Time { return base }

	first := rec.CheckLocationMismatch(ctx)
	assert.True(t, first.HasMismatch)
	assert.True(t, first.ShouldAlert, "first mismatch always alerts")

	rec.AcknowledgeAlert(ctx)

	// Within the cooldown the mismatch is still reported but muted.
	rec.now = func() time.Time { return base.Add(23 * time.Hour) }
	muted := rec.CheckLocationMismatch(ctx)
	assert.True(t, muted.HasMismatch)
	assert.False(t, muted.ShouldAlert)

	rec.now = func() time.Time { return base.Add(25 * time.Hour) }
	again := rec.CheckLocationMismatch(ctx)
	assert.True(t, again.HasMismatch)
	assert.True(t, again.ShouldAlert)
}

func TestMismatchReportsBothSides(t *testing.T) {
	rec, prefs := newReconciler(model.RegionEN)
	ctx := context.Background()

	code := model.RegionZH
	prefs.Initialize(ctx, &code)

	result := rec.CheckLocationMismatch(ctx)
	require.NotNil(t, result.CurrentRegion)
	require.NotNil(t, result.SettingsRegion)
	assert.Equal(t, model.RegionUSA, *result.CurrentRegion)
	assert.Equal(t, model.RegionChina, *result.SettingsRegion)
}
