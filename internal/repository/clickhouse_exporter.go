package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/pkg/logger"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ResultsSchema returns the DDL for the export table.
func ResultsSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol      LowCardinality(String),
    ts          DateTime64(3, 'UTC'),
    computed_at DateTime64(3, 'UTC'),
    original    Nullable(Float64),
    ma          Nullable(Float64),
    median      Nullable(Float64),
    is_max      UInt8,
    is_min      UInt8
) ENGINE = ReplacingMergeTree(computed_at)
ORDER BY (symbol, ts)`, table)}
}

// ClickHouseExporter appends every row of a result to one table. Rows are
// versioned by computed_at so re-exports of the same range collapse on merge.
type ClickHouseExporter struct {
	db        Execer
	table     string
	chunkSize int
	log       *logger.Logger
}

var _ drepo.Exporter = (*ClickHouseExporter)(nil)

func NewClickHouseExporter(db Execer, table string, log *logger.Logger) *ClickHouseExporter {
	if log == nil {
		log = logger.Nop()
	}
	return &ClickHouseExporter{db: db, table: table, chunkSize: 2000, log: log}
}

func (e *ClickHouseExporter) Format() string { return "clickhouse" }

func (e *ClickHouseExporter) Export(ctx context.Context, r *models.Result) (string, error) {
	start := time.Now()
	rows := r.Rows()
	computedAt := r.ComputedAt.UTC()
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	for from := 0; from < len(rows); from += e.chunkSize {
		to := from + e.chunkSize
		if to > len(rows) {
			to = len(rows)
		}

		values := make([]string, 0, to-from)
		args := make([]interface{}, 0, (to-from)*8)
		for _, row := range rows[from:to] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Symbol,
				row.Time.UTC(),
				computedAt,
				row.Original,
				row.MovingAverage,
				row.Median,
				flag(row.Maximum != nil),
				flag(row.Minimum != nil),
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, ts, computed_at, original, ma, median, is_max, is_min) VALUES %s",
			e.table, strings.Join(values, ","))
		if _, err := e.db.ExecContext(ctx, q, args...); err != nil {
			e.log.Error("clickhouse export failed",
				logger.String("symbol", r.Symbol),
				logger.String("table", e.table),
				logger.Int("offset", from),
				logger.Error(err),
			)
			return "", fmt.Errorf("insert %s rows %d-%d: %w", r.Symbol, from, to, err)
		}
	}

	e.log.Debug("clickhouse export done",
		logger.String("symbol", r.Symbol),
		logger.Int("rows", len(rows)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return fmt.Sprintf("clickhouse://%s (%d rows)", e.table, len(rows)), nil
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
