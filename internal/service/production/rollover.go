package production

import (
	"math"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// LoadCarryForward derives the starting state of the next period from the
// append-ordered logs. The last physical summary supplies the yarn stock; the
// stock slice of the latest date supplies per-loom unit stock.
func LoadCarryForward(summaries []models.PeriodSummary, stocks []models.LoomStockRecord) (models.CarryForward, error) {
	cf := models.CarryForward{PerLoomStock: map[int]float64{}}

	for i, s := range summaries {
		if err := checkSummary(i, s); err != nil {
			return models.CarryForward{}, err
		}
	}
	if n := len(summaries); n > 0 {
		cf.PreviousYarnStock = summaries[n-1].RemainingYarn
	}

	for i, r := range stocks {
		if err := checkStock(i, r); err != nil {
			return models.CarryForward{}, err
		}
		if r.Date.After(cf.Date) {
			cf.Date = r.Date
		}
	}
	for _, r := range stocks {
		if r.Date.Equal(cf.Date) {
			cf.PerLoomStock[r.LoomID] = r.RemainingUnitStock
		}
	}

	return cf, nil
}

func checkSummary(i int, s models.PeriodSummary) error {
	switch {
	case s.Date.IsZero():
		return &models.DataIntegrityError{Log: models.SummaryLog, Index: i, Reason: "missing date"}
	case !finite(s.RemainingYarn):
		return &models.DataIntegrityError{Log: models.SummaryLog, Index: i, Reason: "remaining_yarn is not a finite number"}
	}
	return nil
}

func checkStock(i int, r models.LoomStockRecord) error {
	switch {
	case r.Date.IsZero():
		return &models.DataIntegrityError{Log: models.StockLog, Index: i, Reason: "missing date"}
	case r.LoomID < 1:
		return &models.DataIntegrityError{Log: models.StockLog, Index: i, Reason: "missing loom id"}
	case !finite(r.RemainingUnitStock):
		return &models.DataIntegrityError{Log: models.StockLog, Index: i, Reason: "remaining_unit_stock is not a finite number"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
