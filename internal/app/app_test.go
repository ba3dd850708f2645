package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/internal/domain/models"
)

func baseConfig(t *testing.T) config.Config {
	var cfg config.Config
	cfg.Production = config.ProductionConfig{TotalMachines: 7, WastageFraction: 0.015, YarnPerMeter: 0.02854}
	cfg.Store = config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "loom.db")}
	cfg.Reporting.Timezone = "UTC"
	return cfg
}

func TestBuildWarnsWhenYarnRateDefaulted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a, err := Build(context.Background(), baseConfig(t), zap.New(core))
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.Equal(t, 1, logs.FilterMessageSnippet("YARN_PER_METER").Len())

	cfg := baseConfig(t)
	cfg.Production.YarnPerMeterSet = true
	core, logs = observer.New(zap.WarnLevel)
	b, err := Build(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	defer b.Close(context.Background())
	assert.Zero(t, logs.FilterMessageSnippet("YARN_PER_METER").Len())
}

func TestBuildRoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig(t)
	clock := func() time.Time { return time.Date(2026, 10, 10, 20, 0, 0, 0, time.UTC) }

	a, err := Build(ctx, cfg, nil, WithClock(clock))
	require.NoError(t, err)
	res, err := a.Production.Submit(ctx, models.PeriodForm{
		PreviousYarnStock: func() *float64 { v := 50.0; return &v }(),
		NewYarnDelivered:  20,
		Looms:             []models.LoomForm{{LoomID: 1, LengthsText: "80, 90, 75"}},
	})
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	b, err := Build(ctx, cfg, nil, WithClock(clock))
	require.NoError(t, err)
	defer b.Close(ctx)

	cf, err := b.Production.CarryForward(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Summary.RemainingYarn, cf.PreviousYarnStock)
	assert.Equal(t, -3.0, cf.PerLoomStock[1])

	report, err := b.Reporting.GenerateWeeklyReport(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "Total taga: 3")
}

func TestBuildRejectsBadConstants(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Production.WastageFraction = 1
	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)

	cfg = baseConfig(t)
	cfg.Reporting.Timezone = "Nowhere/City"
	_, err = Build(context.Background(), cfg, nil)
	require.Error(t, err)
}
