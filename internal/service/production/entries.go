package production

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// ParseLengths parses a comma separated list of produced lengths. Blank tokens
// are skipped. Any token that is not a finite number fails the whole list.
func ParseLengths(text string) ([]float64, error) {
	var lengths []float64
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", token, err)
		}
		if !finite(value) {
			return nil, fmt.Errorf("token %q: not a finite number", token)
		}
		lengths = append(lengths, value)
	}
	return lengths, nil
}

// BuildInputs resolves an operator form against the carry-forward state. Looms
// missing from the form get an empty entry; unparseable length text empties
// that loom only and is returned as a ParseRecoverableError.
func BuildInputs(form models.PeriodForm, cf models.CarryForward, c Constants) (models.PeriodInputs, []*models.ParseRecoverableError, error) {
	if c.TotalMachines < 1 {
		return models.PeriodInputs{}, nil, models.Invalid("total_machines", "must be at least 1, got %d", c.TotalMachines)
	}

	in := models.PeriodInputs{
		PreviousYarnStock: cf.PreviousYarnStock,
		NewYarnDelivered:  form.NewYarnDelivered,
		Looms:             make([]models.LoomEntry, c.TotalMachines),
	}
	if form.PreviousYarnStock != nil {
		in.PreviousYarnStock = *form.PreviousYarnStock
	}

	seen := make([]bool, c.TotalMachines)
	var parseErrs []*models.ParseRecoverableError

	for _, lf := range form.Looms {
		if lf.LoomID < 1 || lf.LoomID > c.TotalMachines {
			return models.PeriodInputs{}, nil, models.Invalid("looms", "loom id %d outside 1..%d", lf.LoomID, c.TotalMachines)
		}
		if seen[lf.LoomID-1] {
			return models.PeriodInputs{}, nil, models.Invalid("looms", "loom %d entered twice", lf.LoomID)
		}
		seen[lf.LoomID-1] = true

		entry := models.LoomEntry{
			LoomID:         lf.LoomID,
			PriorUnitStock: cf.PriorStock(lf.LoomID),
			AddedCapacity:  lf.AddedCapacity,
		}
		if lf.PriorUnitStock != nil {
			entry.PriorUnitStock = *lf.PriorUnitStock
		}

		entry.ProducedLengths = append(entry.ProducedLengths, lf.ProducedLengths...)
		if strings.TrimSpace(lf.LengthsText) != "" {
			parsed, err := ParseLengths(lf.LengthsText)
			if err != nil {
				parseErrs = append(parseErrs, &models.ParseRecoverableError{LoomID: lf.LoomID, Text: lf.LengthsText, Err: err})
				entry.ProducedLengths = nil
			} else {
				entry.ProducedLengths = append(entry.ProducedLengths, parsed...)
			}
		}

		in.Looms[lf.LoomID-1] = entry
	}

	for i, ok := range seen {
		if !ok {
			in.Looms[i] = models.LoomEntry{LoomID: i + 1, PriorUnitStock: cf.PriorStock(i + 1)}
		}
	}

	return in, parseErrs, nil
}

// Shortfalls lists negative balances in a calculated period.
func Shortfalls(summary models.PeriodSummary, stocks []models.LoomStockRecord) []models.Shortfall {
	var out []models.Shortfall
	for _, s := range stocks {
		if s.RemainingUnitStock < 0 {
			out = append(out, models.Shortfall{Kind: models.ShortfallLoomStock, LoomID: s.LoomID, Amount: s.RemainingUnitStock})
		}
	}
	if summary.RemainingYarn < 0 {
		out = append(out, models.Shortfall{Kind: models.ShortfallYarn, Amount: summary.RemainingYarn})
	}
	return out
}
