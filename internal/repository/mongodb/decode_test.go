package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

func TestDecodeSummaryKeepsPrecision(t *testing.T) {
	day := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	in := models.PeriodSummary{
		ID: "p1", Seq: 4, Date: day, TotalUnitsProduced: 3, TotalLengthProduced: 245,
		WastageFraction: 0.015, FinalLength: 241.325, YarnPerLength: 0.02854,
		YarnRequired: 6.8874155, TotalYarnAvailable: 70, RemainingYarn: 63.1125845,
	}
	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	out, err := DecodeSummary(0, raw)
	require.NoError(t, err)
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, int64(4), out.Seq)
	assert.True(t, out.Date.Equal(day))
	assert.Equal(t, 63.1125845, out.RemainingYarn)
}

func TestDecodeSummaryMissingField(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: "p1"}, {Key: "date", Value: time.Now()}})
	require.NoError(t, err)

	_, err = DecodeSummary(2, raw)
	var integrityErr *models.DataIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, 2, integrityErr.Index)
	assert.Contains(t, integrityErr.Reason, "total_units_produced")
}

func TestDecodeStockWrongType(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "date", Value: time.Now()},
		{Key: "loom_id", Value: "three"},
		{Key: "remaining_unit_stock", Value: 2.5},
	})
	require.NoError(t, err)

	_, err = DecodeStock(0, raw)
	var integrityErr *models.DataIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, models.StockLog, integrityErr.Log)
}

func TestDecodeStock(t *testing.T) {
	day := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
	raw, err := bson.Marshal(models.LoomStockRecord{PeriodID: "p1", Date: day, LoomID: 3, RemainingUnitStock: -2})
	require.NoError(t, err)

	out, err := DecodeStock(0, raw)
	require.NoError(t, err)
	assert.Equal(t, 3, out.LoomID)
	assert.Equal(t, -2.0, out.RemainingUnitStock)
}
