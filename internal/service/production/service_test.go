package production

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/loomstock/internal/domain/models"
	"github.com/mamadbah2/loomstock/internal/metrics"
	"github.com/mamadbah2/loomstock/internal/repository"
	"github.com/mamadbah2/loomstock/internal/repository/memory"
)

// brokenLog serves canned records or errors.
type brokenLog struct {
	memory.Log
	readErr   error
	appendErr error
	stocks    []models.LoomStockRecord
}

func (b *brokenLog) StockRecords(ctx context.Context) ([]models.LoomStockRecord, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	if b.stocks != nil {
		return b.stocks, nil
	}
	return b.Log.StockRecords(ctx)
}

func (b *brokenLog) AppendPeriod(ctx context.Context, s models.PeriodSummary, r []models.LoomStockRecord) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	return b.Log.AppendPeriod(ctx, s, r)
}

func newTestService(t *testing.T, log repository.PeriodLog, clock *time.Time, reg *metrics.Registry) *Service {
	t.Helper()
	ids := 0
	svc, err := NewService(log, constants(2), nil,
		WithClock(func() time.Time { return *clock }),
		WithMetrics(reg),
	)
	require.NoError(t, err)
	svc.newID = func() string {
		ids++
		return "period-" + string(rune('0'+ids))
	}
	return svc
}

func TestServiceSubmitRollsOverIntoNextWeek(t *testing.T) {
	ctx := context.Background()
	log := memory.NewLog()
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)
	reg := metrics.NewRegistry()
	svc := newTestService(t, log, &clock, reg)

	first, err := svc.Submit(ctx, models.PeriodForm{
		PreviousYarnStock: ptr(50),
		NewYarnDelivered:  20,
		Looms: []models.LoomForm{
			{LoomID: 1, PriorUnitStock: ptr(10), LengthsText: "80, 90, 75"},
			{LoomID: 2, PriorUnitStock: ptr(1), LengthsText: "60, 61"},
		},
	})
	require.NoError(t, err)
	assert.True(t, first.Persisted)
	assert.Equal(t, "period-1", first.Summary.ID)
	assert.True(t, first.Summary.CreatedAt.Equal(clock))
	assert.Equal(t, []models.Shortfall{{Kind: models.ShortfallLoomStock, LoomID: 2, Amount: -1}}, first.Shortfalls)
	for _, s := range first.Stocks {
		assert.Equal(t, "period-1", s.PeriodID)
	}

	cf, err := svc.CarryForward(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Summary.RemainingYarn, cf.PreviousYarnStock)
	assert.Equal(t, map[int]float64{1: 7, 2: -1}, cf.PerLoomStock)

	clock = clock.AddDate(0, 0, 7)
	second, err := svc.Submit(ctx, models.PeriodForm{
		Looms: []models.LoomForm{{LoomID: 1, LengthsText: "80"}, {LoomID: 2, AddedCapacity: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Summary.RemainingYarn, second.Summary.PreviousYarnStock)
	assert.Equal(t, 6.0, second.Stocks[0].RemainingUnitStock)
	assert.Equal(t, 9.0, second.Stocks[1].RemainingUnitStock)
	assert.Empty(t, second.Shortfalls)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "period-2", history[0].ID)

	latest, stocks, ok, err := svc.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "period-2", latest.ID)
	assert.Len(t, stocks, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.PeriodsCalculated.WithLabelValues("submit")))
	assert.Equal(t, 6.0, testutil.ToFloat64(reg.UnitsProduced))
	assert.Equal(t, 9.0, testutil.ToFloat64(reg.LoomStock.WithLabelValues("2")))
}

func TestServicePreviewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	log := memory.NewLog()
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)
	svc := newTestService(t, log, &clock, nil)

	res, err := svc.Preview(ctx, models.PeriodForm{
		Looms: []models.LoomForm{{LoomID: 1, LengthsText: "80, x"}, {LoomID: 2, LengthsText: "50"}},
	})
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Empty(t, res.Summary.ID)
	require.Len(t, res.ParseErrors, 1)
	assert.Equal(t, 1, res.ParseErrors[0].LoomID)
	assert.Equal(t, 1, res.Summary.TotalUnitsProduced)

	summaries, err := log.Summaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	_, _, ok, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceAbortsOnIntegrityError(t *testing.T) {
	ctx := context.Background()
	log := &brokenLog{stocks: []models.LoomStockRecord{{LoomID: 1, RemainingUnitStock: 3}}}
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)
	reg := metrics.NewRegistry()
	svc := newTestService(t, log, &clock, reg)

	_, err := svc.Submit(ctx, models.PeriodForm{})
	var integrityErr *models.DataIntegrityError
	require.True(t, errors.As(err, &integrityErr), "got %v", err)

	summaries, err := log.Summaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PeriodsRejected.WithLabelValues("data_integrity")))
}

func TestServiceStoreErrors(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)

	readFail := &brokenLog{readErr: errors.New("disk gone")}
	_, err := newTestService(t, readFail, &clock, nil).Preview(ctx, models.PeriodForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read stock log")

	appendFail := &brokenLog{appendErr: errors.New("read only")}
	_, err = newTestService(t, appendFail, &clock, nil).Submit(ctx, models.PeriodForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append period")
}

func TestServiceInvalidInput(t *testing.T) {
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)
	svc := newTestService(t, memory.NewLog(), &clock, nil)

	_, err := svc.Submit(context.Background(), models.PeriodForm{NewYarnDelivered: -5})
	var invalidErr *models.InvalidInputError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "new_yarn_delivered", invalidErr.Field)
}

func TestServiceRejectsOverflowingTotalsWithoutAppending(t *testing.T) {
	ctx := context.Background()
	log := memory.NewLog()
	clock := time.Date(2026, 10, 3, 19, 0, 0, 0, time.UTC)
	reg := metrics.NewRegistry()
	svc := newTestService(t, log, &clock, reg)

	_, err := svc.Submit(ctx, models.PeriodForm{
		Looms: []models.LoomForm{{LoomID: 1, LengthsText: "1e308, 1e308"}},
	})
	var invalidErr *models.InvalidInputError
	require.True(t, errors.As(err, &invalidErr), "got %v", err)
	assert.Equal(t, "produced_lengths", invalidErr.Field)

	summaries, err := log.Summaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	stocks, err := log.StockRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, stocks)

	_, err = svc.CarryForward(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PeriodsRejected.WithLabelValues("invalid_input")))
}

func TestNewServiceValidatesConstants(t *testing.T) {
	_, err := NewService(memory.NewLog(), Constants{TotalMachines: 7, WastageFraction: 1.5}, nil)
	require.Error(t, err)

	_, err = NewService(nil, constants(7), nil)
	require.Error(t, err)
}

func TestServiceUsesLocationForDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	clock := time.Date(2026, 10, 3, 20, 0, 0, 0, time.UTC) // 01:30 on the 4th in IST
	svc, err := NewService(memory.NewLog(), constants(1), nil,
		WithClock(func() time.Time { return clock }), WithLocation(ist))
	require.NoError(t, err)

	res, err := svc.Preview(context.Background(), models.PeriodForm{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Summary.Date.Day())
}
