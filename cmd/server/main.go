package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/app"
	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/internal/scheduler"
	"github.com/mamadbah2/loomstock/internal/server/handlers"
	"github.com/mamadbah2/loomstock/internal/server/router"
	commandsvc "github.com/mamadbah2/loomstock/internal/service/commands"
	whatsappsvc "github.com/mamadbah2/loomstock/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/loomstock/pkg/clients/whatsapp"
	"github.com/mamadbah2/loomstock/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	baseLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	core, err := app.Build(context.Background(), *cfg, baseLogger)
	if err != nil {
		baseLogger.Error("failed to init services", zap.Error(err))
		return fmt.Errorf("init services: %w", err)
	}
	defer func() {
		if err := core.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close period log", zap.Error(err))
		}
	}()

	routes := router.Handlers{
		Periods: handlers.NewPeriodHandler(core.Production, baseLogger.Named("handlers.periods")),
		Metrics: core.Metrics.Handler(),
	}

	if cfg.WhatsApp.Enabled() {
		dispatcher := commandsvc.NewService(core.Reporting, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))

		if cfg.WhatsApp.ManagerID != "" {
			sched, err := scheduler.NewScheduler(*cfg, core.Reporting, messagingSvc, baseLogger.Named("scheduler"))
			if err != nil {
				return fmt.Errorf("init scheduler: %w", err)
			}
			if err := sched.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()
		} else {
			baseLogger.Warn("WHATSAPP_MANAGER_ID missing, weekly report disabled")
		}
	} else {
		baseLogger.Warn("whatsapp credentials missing, messaging disabled")
	}

	engine := router.New(routes, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger.Info("server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
		zap.Int("total_machines", cfg.Production.TotalMachines))
	return serve(ctx, srv, baseLogger)
}

// serve runs srv until ctx is done, then shuts it down gracefully. A listener
// failure is returned so deferred cleanup in run still happens.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("http server crashed", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
