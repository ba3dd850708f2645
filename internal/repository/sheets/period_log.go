package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

const (
	dateLayout   = "2006-01-02"
	summaryRange = "Summary!A:M"
	stockRange   = "LoomStock!A:D"
)

var (
	summaryHeader = []interface{}{"id", "date", "total_units_produced", "total_length_produced", "wastage_fraction",
		"final_length", "yarn_per_length", "yarn_required", "previous_yarn_stock", "new_yarn_delivered",
		"total_yarn_available", "remaining_yarn", "created_at"}
	stockHeader = []interface{}{"period_id", "date", "loom_id", "remaining_unit_stock"}
)

// PeriodLog stores weekly results as appended spreadsheet rows. The summary
// tab and the loom stock tab may start with a header row.
type PeriodLog struct {
	repo   Repository
	logger *zap.Logger
}

// NewPeriodLog wraps a row repository.
func NewPeriodLog(repo Repository, logger *zap.Logger) *PeriodLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodLog{repo: repo, logger: logger}
}

// EnsureHeaders writes the header rows into empty tabs.
func (l *PeriodLog) EnsureHeaders(ctx context.Context) error {
	for _, tab := range []struct {
		rng    string
		header []interface{}
	}{{summaryRange, summaryHeader}, {stockRange, stockHeader}} {
		rows, err := l.repo.ReadRange(ctx, tab.rng)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			continue
		}
		if err := l.repo.WriteRows(ctx, tab.rng, [][]interface{}{tab.header}); err != nil {
			return err
		}
	}
	return nil
}

// AppendPeriod writes the summary row, then the stock rows. The Sheets API has
// no transactions; a failed stock write leaves the summary row behind.
func (l *PeriodLog) AppendPeriod(ctx context.Context, summary models.PeriodSummary, stocks []models.LoomStockRecord) error {
	if err := l.repo.WriteRows(ctx, summaryRange, [][]interface{}{SummaryRow(summary)}); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(stocks))
	for _, s := range stocks {
		s.PeriodID = summary.ID
		rows = append(rows, StockRow(s))
	}
	if err := l.repo.WriteRows(ctx, stockRange, rows); err != nil {
		l.logger.Error("loom stock rows not written after summary", zap.String("period_id", summary.ID), zap.Error(err))
		return err
	}
	return nil
}

// Summaries decodes the summary tab in row order.
func (l *PeriodLog) Summaries(ctx context.Context) ([]models.PeriodSummary, error) {
	rows, err := l.repo.ReadRange(ctx, summaryRange)
	if err != nil {
		return nil, fmt.Errorf("load summary range: %w", err)
	}
	rows = dropHeader(rows)
	out := make([]models.PeriodSummary, 0, len(rows))
	for i, row := range rows {
		s, err := ParseSummaryRow(i, row)
		if err != nil {
			return nil, err
		}
		s.Seq = int64(i + 1)
		out = append(out, s)
	}
	return out, nil
}

// StockRecords decodes the loom stock tab in row order.
func (l *PeriodLog) StockRecords(ctx context.Context) ([]models.LoomStockRecord, error) {
	rows, err := l.repo.ReadRange(ctx, stockRange)
	if err != nil {
		return nil, fmt.Errorf("load stock range: %w", err)
	}
	rows = dropHeader(rows)
	out := make([]models.LoomStockRecord, 0, len(rows))
	for i, row := range rows {
		r, err := ParseStockRow(i, row)
		if err != nil {
			return nil, err
		}
		r.Seq = int64(i + 1)
		out = append(out, r)
	}
	return out, nil
}

// Close is a no-op; the Sheets client holds no connection.
func (l *PeriodLog) Close(context.Context) error { return nil }

// SummaryRow encodes a summary in column order.
func SummaryRow(s models.PeriodSummary) []interface{} {
	created := ""
	if !s.CreatedAt.IsZero() {
		created = s.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return []interface{}{
		s.ID, s.Date.Format(dateLayout), s.TotalUnitsProduced, s.TotalLengthProduced, s.WastageFraction,
		s.FinalLength, s.YarnPerLength, s.YarnRequired, s.PreviousYarnStock, s.NewYarnDelivered,
		s.TotalYarnAvailable, s.RemainingYarn, created,
	}
}

// StockRow encodes a loom stock record in column order.
func StockRow(r models.LoomStockRecord) []interface{} {
	return []interface{}{r.PeriodID, r.Date.Format(dateLayout), r.LoomID, r.RemainingUnitStock}
}

// ParseSummaryRow decodes one summary row. Missing or malformed required cells
// are integrity errors.
func ParseSummaryRow(index int, row []interface{}) (models.PeriodSummary, error) {
	p := rowParser{log: models.SummaryLog, index: index, row: row}
	s := models.PeriodSummary{
		ID:                  p.str(0, "id"),
		Date:                p.date(1, "date"),
		TotalUnitsProduced:  p.integer(2, "total_units_produced"),
		TotalLengthProduced: p.float(3, "total_length_produced"),
		WastageFraction:     p.float(4, "wastage_fraction"),
		FinalLength:         p.float(5, "final_length"),
		YarnPerLength:       p.float(6, "yarn_per_length"),
		YarnRequired:        p.float(7, "yarn_required"),
		PreviousYarnStock:   p.float(8, "previous_yarn_stock"),
		NewYarnDelivered:    p.float(9, "new_yarn_delivered"),
		TotalYarnAvailable:  p.float(10, "total_yarn_available"),
		RemainingYarn:       p.float(11, "remaining_yarn"),
	}
	if raw := p.optional(12); raw != "" {
		created, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			p.fail("created_at", err)
		}
		s.CreatedAt = created
	}
	if p.err != nil {
		return models.PeriodSummary{}, p.err
	}
	return s, nil
}

// ParseStockRow decodes one loom stock row.
func ParseStockRow(index int, row []interface{}) (models.LoomStockRecord, error) {
	p := rowParser{log: models.StockLog, index: index, row: row}
	r := models.LoomStockRecord{
		PeriodID:           p.optional(0),
		Date:               p.date(1, "date"),
		LoomID:             p.integer(2, "loom_id"),
		RemainingUnitStock: p.float(3, "remaining_unit_stock"),
	}
	if p.err != nil {
		return models.LoomStockRecord{}, p.err
	}
	return r, nil
}

func dropHeader(rows [][]interface{}) [][]interface{} {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return rows
	}
	if strings.EqualFold(fmt.Sprint(rows[0][1]), "date") {
		return rows[1:]
	}
	return rows
}

// rowParser keeps the first decoding failure of a row.
type rowParser struct {
	log   string
	index int
	row   []interface{}
	err   error
}

func (p *rowParser) fail(field string, err error) {
	if p.err == nil {
		p.err = &models.DataIntegrityError{Log: p.log, Index: p.index, Reason: "field " + field, Err: err}
	}
}

func (p *rowParser) optional(col int) string {
	if col >= len(p.row) || p.row[col] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(p.row[col]))
}

func (p *rowParser) str(col int, field string) string {
	value := p.optional(col)
	if value == "" {
		p.fail(field, fmt.Errorf("missing value"))
	}
	return value
}

func (p *rowParser) date(col int, field string) time.Time {
	value := p.str(col, field)
	if value == "" {
		return time.Time{}
	}
	if len(value) > 10 {
		value = value[:10]
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		p.fail(field, err)
	}
	return parsed
}

func (p *rowParser) float(col int, field string) float64 {
	value := p.str(col, field)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(field, err)
	}
	return parsed
}

func (p *rowParser) integer(col int, field string) int {
	f := p.float(col, field)
	if f != float64(int(f)) {
		p.fail(field, fmt.Errorf("%v is not a whole number", f))
	}
	return int(f)
}
