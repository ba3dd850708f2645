package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// Log is an in-process PeriodLog.
type Log struct {
	mu        sync.RWMutex
	summaries []models.PeriodSummary
	stocks    []models.LoomStockRecord
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// AppendPeriod stores copies of the records.
func (l *Log) AppendPeriod(_ context.Context, summary models.PeriodSummary, stocks []models.LoomStockRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	summary.Seq = int64(len(l.summaries) + 1)
	l.summaries = append(l.summaries, summary)
	for _, s := range stocks {
		s.Seq = summary.Seq
		l.stocks = append(l.stocks, s)
	}
	return nil
}

func (l *Log) Summaries(_ context.Context) ([]models.PeriodSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.PeriodSummary(nil), l.summaries...), nil
}

func (l *Log) StockRecords(_ context.Context) ([]models.LoomStockRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.LoomStockRecord(nil), l.stocks...), nil
}

func (l *Log) Close(context.Context) error { return nil }
