package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

func openTemp(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "loomstock.db")
	log, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close(context.Background()) })
	return log, path
}

func TestAppendAndReadBackInOrder(t *testing.T) {
	ctx := context.Background()
	log, _ := openTemp(t)

	week1 := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)

	require.NoError(t, log.AppendPeriod(ctx, models.PeriodSummary{
		ID: "p1", Date: week1, TotalUnitsProduced: 3, TotalLengthProduced: 245,
		FinalLength: 241.325, YarnRequired: 6.8874155, TotalYarnAvailable: 70,
		RemainingYarn: 63.1125845, CreatedAt: week1.Add(20 * time.Hour),
	}, []models.LoomStockRecord{
		{Date: week1, LoomID: 1, RemainingUnitStock: 7},
		{Date: week1, LoomID: 2, RemainingUnitStock: -1.5},
	}))
	require.NoError(t, log.AppendPeriod(ctx, models.PeriodSummary{
		ID: "p2", Date: week2, RemainingYarn: 12.25,
	}, []models.LoomStockRecord{{Date: week2, LoomID: 1, RemainingUnitStock: 4}}))

	summaries, err := log.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "p1", summaries[0].ID)
	assert.Equal(t, "p2", summaries[1].ID)
	assert.True(t, summaries[0].Date.Equal(week1))
	assert.Equal(t, 63.1125845, summaries[0].RemainingYarn)
	assert.Equal(t, 3, summaries[0].TotalUnitsProduced)
	assert.True(t, summaries[0].CreatedAt.Equal(week1.Add(20*time.Hour)))
	assert.True(t, summaries[1].CreatedAt.IsZero() || summaries[1].CreatedAt.Year() == 1)

	stocks, err := log.StockRecords(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 3)
	assert.Equal(t, "p1", stocks[0].PeriodID)
	assert.Equal(t, -1.5, stocks[1].RemainingUnitStock)
	assert.Equal(t, 2, stocks[1].LoomID)
	assert.True(t, stocks[2].Date.Equal(week2))
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	log, path := openTemp(t)

	day := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, log.AppendPeriod(ctx, models.PeriodSummary{ID: "p1", Date: day, RemainingYarn: 1},
		[]models.LoomStockRecord{{Date: day, LoomID: 1, RemainingUnitStock: 2}}))
	require.NoError(t, log.Close(ctx))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close(ctx) }()

	summaries, err := reopened.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}

func TestDuplicateIDRollsBackWholePeriod(t *testing.T) {
	ctx := context.Background()
	log, _ := openTemp(t)

	day := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, log.AppendPeriod(ctx, models.PeriodSummary{ID: "p1", Date: day}, nil))
	err := log.AppendPeriod(ctx, models.PeriodSummary{ID: "p1", Date: day},
		[]models.LoomStockRecord{{Date: day, LoomID: 1, RemainingUnitStock: 2}})
	require.Error(t, err)

	stocks, err := log.StockRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, stocks)
}

func TestMalformedRowsAreIntegrityErrors(t *testing.T) {
	ctx := context.Background()
	log, _ := openTemp(t)

	_, err := log.db.Exec(`INSERT INTO loom_stock (period_id, date, loom_id, remaining_unit_stock) VALUES ('p', 'not-a-date', 1, 2)`)
	require.NoError(t, err)
	_, err = log.db.Exec(`INSERT INTO period_summaries (id, date) VALUES ('p', '2026-10-10')`)
	require.NoError(t, err)

	_, err = log.StockRecords(ctx)
	var integrityErr *models.DataIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, models.StockLog, integrityErr.Log)

	_, err = log.Summaries(ctx)
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, models.SummaryLog, integrityErr.Log)
}
