// Package store opens the configured period log backend.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/internal/repository"
	"github.com/mamadbah2/loomstock/internal/repository/memory"
	"github.com/mamadbah2/loomstock/internal/repository/mongodb"
	"github.com/mamadbah2/loomstock/internal/repository/sheets"
	"github.com/mamadbah2/loomstock/internal/repository/sqlite"
)

// Open returns the period log selected by STORE_BACKEND. Callers Close it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.PeriodLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", cfg.Store.Backend))

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		log, err := sqlite.Open(cfg.Store.SQLitePath, logger.Named("repo.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return log, nil
	case config.BackendMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("repo.mongodb"))
		if err != nil {
			return nil, fmt.Errorf("open mongodb store: %w", err)
		}
		return repo, nil
	case config.BackendSheets:
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("open sheets store: %w", err)
		}
		log := sheets.NewPeriodLog(repo, logger.Named("repo.sheets"))
		if err := log.EnsureHeaders(ctx); err != nil {
			return nil, fmt.Errorf("prepare sheets store: %w", err)
		}
		return log, nil
	case config.BackendMemory:
		logger.Warn("memory store selected, periods are lost on exit")
		return memory.NewLog(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
