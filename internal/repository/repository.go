package repository

import (
	"context"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// PeriodLog is the append-only store of weekly results. Records are never
// updated or deleted; reads return them in append order.
type PeriodLog interface {
	// AppendPeriod writes a summary and its loom stock records together.
	AppendPeriod(ctx context.Context, summary models.PeriodSummary, stocks []models.LoomStockRecord) error
	Summaries(ctx context.Context) ([]models.PeriodSummary, error)
	StockRecords(ctx context.Context) ([]models.LoomStockRecord, error)
	Close(ctx context.Context) error
}
