package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Display precision. Stored values keep full precision.
const (
	lengthPlaces = 2
	yarnPlaces   = 3
)

// PeriodSource is the read side of the production service used for reports.
type PeriodSource interface {
	Latest(ctx context.Context) (models.PeriodSummary, []models.LoomStockRecord, bool, error)
	CarryForward(ctx context.Context) (models.CarryForward, error)
	History(ctx context.Context, limit int) ([]models.PeriodSummary, error)
}

// Service renders weekly summaries for WhatsApp and terminals.
type Service struct {
	source PeriodSource
	logger *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(source PeriodSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger}
}

// GenerateWeeklyReport renders the latest submitted period.
func (s *Service) GenerateWeeklyReport(ctx context.Context) (string, error) {
	summary, stocks, ok, err := s.source.Latest(ctx)
	if err != nil {
		return "", fmt.Errorf("load latest period: %w", err)
	}
	if !ok {
		return "Weekly summary: no period has been submitted yet.", nil
	}
	return FormatSummary(summary, stocks), nil
}

// StockReport renders the carry-forward state for the next period.
func (s *Service) StockReport(ctx context.Context) (string, error) {
	cf, err := s.source.CarryForward(ctx)
	if err != nil {
		return "", fmt.Errorf("load carry forward: %w", err)
	}
	return FormatCarryForward(cf), nil
}

// HistoryReport renders a one line digest per recent period.
func (s *Service) HistoryReport(ctx context.Context, limit int) (string, error) {
	summaries, err := s.source.History(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if len(summaries) == 0 {
		return "History: no periods recorded.", nil
	}
	var b strings.Builder
	b.WriteString("History")
	for _, p := range summaries {
		fmt.Fprintf(&b, "\n%s  taga %d  meters %s  final %s  yarn used %s kg  left %s kg",
			p.Date.Format(dateLayout), p.TotalUnitsProduced, Length(p.TotalLengthProduced),
			Length(p.FinalLength), Yarn(p.YarnRequired), Yarn(p.RemainingYarn))
	}
	return b.String(), nil
}

// FormatSummary renders a period the way the weekly summary card shows it.
func FormatSummary(s models.PeriodSummary, stocks []models.LoomStockRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weekly summary %s\n", s.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Total taga: %d\n", s.TotalUnitsProduced)
	fmt.Fprintf(&b, "Total meters: %s\n", Length(s.TotalLengthProduced))
	fmt.Fprintf(&b, "Meters after %s%% wastage: %s\n", Percent(s.WastageFraction), Length(s.FinalLength))
	fmt.Fprintf(&b, "Yarn required: %s kg\n", Yarn(s.YarnRequired))
	fmt.Fprintf(&b, "Yarn available: %s kg\n", Yarn(s.TotalYarnAvailable))
	fmt.Fprintf(&b, "Yarn remaining: %s kg", Yarn(s.RemainingYarn))
	if s.RemainingYarn < 0 {
		b.WriteString(" (shortfall)")
	}

	sorted := append([]models.LoomStockRecord(nil), stocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LoomID < sorted[j].LoomID })
	for _, r := range sorted {
		fmt.Fprintf(&b, "\nLoom %d remaining stock: %s", r.LoomID, Length(r.RemainingUnitStock))
	}
	return b.String()
}

// FormatCarryForward renders the state the next period will start from.
func FormatCarryForward(cf models.CarryForward) string {
	var b strings.Builder
	if cf.Date.IsZero() {
		b.WriteString("Carry forward (no stock recorded yet)\n")
	} else {
		fmt.Fprintf(&b, "Carry forward from %s\n", cf.Date.Format(dateLayout))
	}
	fmt.Fprintf(&b, "Previous yarn stock: %s kg", Yarn(cf.PreviousYarnStock))

	looms := make([]int, 0, len(cf.PerLoomStock))
	for id := range cf.PerLoomStock {
		looms = append(looms, id)
	}
	sort.Ints(looms)
	for _, id := range looms {
		fmt.Fprintf(&b, "\nLoom %d stock: %s", id, Length(cf.PerLoomStock[id]))
	}
	return b.String()
}

// Length rounds meters and unit counts for display.
func Length(v float64) string {
	return fixed(v, lengthPlaces)
}

// Yarn rounds kilograms of yarn for display.
func Yarn(v float64) string {
	return fixed(v, yarnPlaces)
}

// fixed renders v with places decimals. Non-finite values, which decimal
// cannot represent, print as Go formats them.
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

// Percent renders a fraction as a trimmed percentage, 0.015 as "1.5".
func Percent(fraction float64) string {
	return decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(100)).Round(4).String()
}
