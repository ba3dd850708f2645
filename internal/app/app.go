// Package app assembles the period log, production service and reporting
// service shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/internal/metrics"
	"github.com/mamadbah2/loomstock/internal/repository"
	"github.com/mamadbah2/loomstock/internal/service/production"
	"github.com/mamadbah2/loomstock/internal/service/reporting"
	"github.com/mamadbah2/loomstock/internal/store"
)

// App holds the wired core services.
type App struct {
	Log        repository.PeriodLog
	Production *production.Service
	Reporting  *reporting.Service
	Metrics    *metrics.Registry
	Location   *time.Location
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	log   repository.PeriodLog
	clock func() time.Time
}

// WithPeriodLog uses log instead of opening the configured backend.
func WithPeriodLog(log repository.PeriodLog) Option {
	return func(o *buildOptions) { o.log = log }
}

// WithClock overrides the production service clock.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.clock = now }
}

// Build opens the store and wires the services.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Production.YarnPerMeterSet {
		logger.Warn("YARN_PER_METER not set, using default; confirm the rate, 0.2854 is also in circulation",
			zap.Float64("yarn_per_meter", cfg.Production.YarnPerMeter))
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Reporting.Timezone, err)
	}

	log := o.log
	if log == nil {
		log, err = store.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	reg := metrics.NewRegistry()
	svcOpts := []production.Option{production.WithMetrics(reg), production.WithLocation(loc)}
	if o.clock != nil {
		svcOpts = append(svcOpts, production.WithClock(o.clock))
	}

	prod, err := production.NewService(log, ConstantsFrom(cfg.Production), logger.Named("svc.production"), svcOpts...)
	if err != nil {
		_ = log.Close(ctx)
		return nil, fmt.Errorf("production constants: %w", err)
	}

	return &App{
		Log:        log,
		Production: prod,
		Reporting:  reporting.NewService(prod, logger.Named("svc.reporting")),
		Metrics:    reg,
		Location:   loc,
	}, nil
}

// Close releases the period log.
func (a *App) Close(ctx context.Context) error {
	return a.Log.Close(ctx)
}

// ConstantsFrom maps production configuration onto calculator constants.
func ConstantsFrom(cfg config.ProductionConfig) production.Constants {
	return production.Constants{
		TotalMachines:   cfg.TotalMachines,
		WastageFraction: cfg.WastageFraction,
		YarnPerLength:   cfg.YarnPerMeter,
	}
}
