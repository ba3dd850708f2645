package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS period_summaries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	date TEXT,
	total_units_produced INTEGER,
	total_length_produced REAL,
	wastage_fraction REAL,
	final_length REAL,
	yarn_per_length REAL,
	yarn_required REAL,
	previous_yarn_stock REAL,
	new_yarn_delivered REAL,
	total_yarn_available REAL,
	remaining_yarn REAL,
	created_at TEXT
);

CREATE TABLE IF NOT EXISTS loom_stock (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	period_id TEXT NOT NULL,
	date TEXT,
	loom_id INTEGER,
	remaining_unit_stock REAL
);

CREATE INDEX IF NOT EXISTS idx_loom_stock_date ON loom_stock(date);
`

// Log is a PeriodLog backed by a local SQLite file. Rows are only inserted.
type Log struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open creates the database file and schema when missing.
func Open(path string, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "loomstock.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("sqlite period log ready", zap.String("path", path))
	return &Log{db: db, logger: logger}, nil
}

// AppendPeriod inserts the summary and its stock rows in one transaction.
func (l *Log) AppendPeriod(ctx context.Context, summary models.PeriodSummary, stocks []models.LoomStockRecord) (retErr error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO period_summaries (
		id, date, total_units_produced, total_length_produced, wastage_fraction, final_length,
		yarn_per_length, yarn_required, previous_yarn_stock, new_yarn_delivered,
		total_yarn_available, remaining_yarn, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.Date.Format(dateLayout), summary.TotalUnitsProduced, summary.TotalLengthProduced,
		summary.WastageFraction, summary.FinalLength, summary.YarnPerLength, summary.YarnRequired,
		summary.PreviousYarnStock, summary.NewYarnDelivered, summary.TotalYarnAvailable, summary.RemainingYarn,
		summary.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert period summary: %w", err)
	}

	for _, s := range stocks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO loom_stock (period_id, date, loom_id, remaining_unit_stock) VALUES (?, ?, ?, ?)`,
			summary.ID, s.Date.Format(dateLayout), s.LoomID, s.RemainingUnitStock); err != nil {
			return fmt.Errorf("insert loom %d stock: %w", s.LoomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	l.logger.Debug("period appended", zap.String("period_id", summary.ID), zap.Int("stock_rows", len(stocks)))
	return nil
}

// Summaries returns every summary in insertion order.
func (l *Log) Summaries(ctx context.Context) ([]models.PeriodSummary, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT seq, id, date, total_units_produced, total_length_produced,
		wastage_fraction, final_length, yarn_per_length, yarn_required, previous_yarn_stock,
		new_yarn_delivered, total_yarn_available, remaining_yarn, created_at
		FROM period_summaries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select period summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.PeriodSummary
	for rows.Next() {
		var s models.PeriodSummary
		var date, created sql.NullString
		var units sql.NullInt64
		var total, wastage, final, perLength, required sql.NullFloat64
		var previous, delivered, available, remaining sql.NullFloat64
		if err := rows.Scan(&s.Seq, &s.ID, &date, &units, &total, &wastage, &final, &perLength,
			&required, &previous, &delivered, &available, &remaining, &created); err != nil {
			return nil, integrity(models.SummaryLog, len(out), "scan", err)
		}
		if !date.Valid || !units.Valid || !total.Valid || !final.Valid || !required.Valid || !available.Valid || !remaining.Valid {
			return nil, integrity(models.SummaryLog, len(out), "missing column value", nil)
		}
		if s.Date, err = time.Parse(dateLayout, date.String); err != nil {
			return nil, integrity(models.SummaryLog, len(out), "bad date", err)
		}
		if created.Valid && created.String != "" {
			if s.CreatedAt, err = time.Parse(time.RFC3339Nano, created.String); err != nil {
				return nil, integrity(models.SummaryLog, len(out), "bad created_at", err)
			}
		}
		s.TotalUnitsProduced = int(units.Int64)
		s.TotalLengthProduced = total.Float64
		s.WastageFraction = wastage.Float64
		s.FinalLength = final.Float64
		s.YarnPerLength = perLength.Float64
		s.YarnRequired = required.Float64
		s.PreviousYarnStock = previous.Float64
		s.NewYarnDelivered = delivered.Float64
		s.TotalYarnAvailable = available.Float64
		s.RemainingYarn = remaining.Float64
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period summaries: %w", err)
	}
	return out, nil
}

// StockRecords returns every loom stock row in insertion order.
func (l *Log) StockRecords(ctx context.Context) ([]models.LoomStockRecord, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT seq, period_id, date, loom_id, remaining_unit_stock FROM loom_stock ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select loom stock: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.LoomStockRecord
	for rows.Next() {
		var (
			r         models.LoomStockRecord
			date      sql.NullString
			loom      sql.NullInt64
			remaining sql.NullFloat64
		)
		if err := rows.Scan(&r.Seq, &r.PeriodID, &date, &loom, &remaining); err != nil {
			return nil, integrity(models.StockLog, len(out), "scan", err)
		}
		if !date.Valid || !loom.Valid || !remaining.Valid {
			return nil, integrity(models.StockLog, len(out), "missing column value", nil)
		}
		if r.Date, err = time.Parse(dateLayout, date.String); err != nil {
			return nil, integrity(models.StockLog, len(out), "bad date", err)
		}
		r.LoomID = int(loom.Int64)
		r.RemainingUnitStock = remaining.Float64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loom stock: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (l *Log) Close(context.Context) error {
	return l.db.Close()
}

func integrity(log string, index int, reason string, err error) error {
	return &models.DataIntegrityError{Log: log, Index: index, Reason: reason, Err: err}
}
