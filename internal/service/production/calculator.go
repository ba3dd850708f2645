package production

import (
	"sort"
	"time"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// Constants are the deployment parameters of a calculation.
type Constants struct {
	TotalMachines   int
	WastageFraction float64
	YarnPerLength   float64
}

// Validate rejects constants the calculator cannot work with.
func (c Constants) Validate() error {
	switch {
	case c.TotalMachines < 1:
		return models.Invalid("total_machines", "must be at least 1, got %d", c.TotalMachines)
	case !finite(c.WastageFraction) || c.WastageFraction < 0 || c.WastageFraction >= 1:
		return models.Invalid("wastage_fraction", "must be in [0, 1), got %v", c.WastageFraction)
	case !finite(c.YarnPerLength) || c.YarnPerLength < 0:
		return models.Invalid("yarn_per_length", "must not be negative, got %v", c.YarnPerLength)
	}
	return nil
}

// CalendarDate truncates t to its calendar day in t's location and returns it
// as midnight UTC, the form every log stores.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Calculate computes the weekly summary and next period's loom stock. It is a
// pure function of its arguments. The summary has no ID or CreatedAt; callers
// that persist it assign those.
func Calculate(in models.PeriodInputs, c Constants, date time.Time) (models.PeriodSummary, []models.LoomStockRecord, error) {
	if err := c.Validate(); err != nil {
		return models.PeriodSummary{}, nil, err
	}
	looms, err := validateInputs(in, c.TotalMachines)
	if err != nil {
		return models.PeriodSummary{}, nil, err
	}

	day := CalendarDate(date)
	stocks := make([]models.LoomStockRecord, 0, len(looms))

	var units int
	var length float64
	for _, loom := range looms {
		units += len(loom.ProducedLengths)
		for _, l := range loom.ProducedLengths {
			length += l
		}
		remaining := loom.RemainingUnitStock()
		if !finite(remaining) {
			return models.PeriodSummary{}, nil, models.Invalid("prior_unit_stock", "loom %d: stock overflows, got %v", loom.LoomID, remaining)
		}
		stocks = append(stocks, models.LoomStockRecord{
			Date:               day,
			LoomID:             loom.LoomID,
			RemainingUnitStock: remaining,
		})
	}

	final := length * (1 - c.WastageFraction)
	required := final * c.YarnPerLength
	available := in.PreviousYarnStock + in.NewYarnDelivered

	// Finite inputs can still overflow once summed; the log must only hold
	// finite values.
	for _, v := range []struct {
		field string
		value float64
	}{
		{"produced_lengths", length},
		{"produced_lengths", final},
		{"produced_lengths", required},
		{"new_yarn_delivered", available},
		{"new_yarn_delivered", available - required},
	} {
		if !finite(v.value) {
			return models.PeriodSummary{}, nil, models.Invalid(v.field, "totals overflow, got %v", v.value)
		}
	}

	summary := models.PeriodSummary{
		Date:                day,
		TotalUnitsProduced:  units,
		TotalLengthProduced: length,
		WastageFraction:     c.WastageFraction,
		FinalLength:         final,
		YarnPerLength:       c.YarnPerLength,
		YarnRequired:        required,
		PreviousYarnStock:   in.PreviousYarnStock,
		NewYarnDelivered:    in.NewYarnDelivered,
		TotalYarnAvailable:  available,
		RemainingYarn:       available - required,
	}

	return summary, stocks, nil
}

// validateInputs checks shape and returns the looms sorted by id.
func validateInputs(in models.PeriodInputs, machines int) ([]models.LoomEntry, error) {
	// Negative previous stock is a carried yarn shortfall.
	if !finite(in.PreviousYarnStock) {
		return nil, models.Invalid("previous_yarn_stock", "must be a number, got %v", in.PreviousYarnStock)
	}
	if !finite(in.NewYarnDelivered) || in.NewYarnDelivered < 0 {
		return nil, models.Invalid("new_yarn_delivered", "must be a non-negative number, got %v", in.NewYarnDelivered)
	}
	if len(in.Looms) != machines {
		return nil, models.Invalid("looms", "expected %d looms, got %d", machines, len(in.Looms))
	}

	looms := make([]models.LoomEntry, len(in.Looms))
	copy(looms, in.Looms)
	sort.SliceStable(looms, func(i, j int) bool { return looms[i].LoomID < looms[j].LoomID })

	for i, loom := range looms {
		if loom.LoomID != i+1 {
			return nil, models.Invalid("looms", "expected one entry per loom id 1..%d, found id %d at position %d", machines, loom.LoomID, i+1)
		}
		// A negative prior stock is a deficit carried from an over-produced week.
		if !finite(loom.PriorUnitStock) {
			return nil, models.Invalid("prior_unit_stock", "loom %d: must be a number, got %v", loom.LoomID, loom.PriorUnitStock)
		}
		if !finite(loom.AddedCapacity) || loom.AddedCapacity < 0 {
			return nil, models.Invalid("added_capacity", "loom %d: must be a non-negative number, got %v", loom.LoomID, loom.AddedCapacity)
		}
		for _, l := range loom.ProducedLengths {
			if !finite(l) || l <= 0 {
				return nil, models.Invalid("produced_lengths", "loom %d: lengths must be positive, got %v", loom.LoomID, l)
			}
		}
	}

	return looms, nil
}
