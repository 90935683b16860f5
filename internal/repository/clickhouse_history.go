package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	pkgch "BinPulse/pkg/clickhouse"
	applogger "BinPulse/pkg/logger"
)

const defaultReadingsTable = "bin_readings"

// CHHistoryStore persists simulation events in ClickHouse and answers the
// report queries over them.
type CHHistoryStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, table string) *CHHistoryStore {
	if table == "" {
		table = defaultReadingsTable
	}
	return &CHHistoryStore{ch: ch, db: ch.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHHistoryStore) schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            event_id  String,
            tick      Int64,
            kind      LowCardinality(String),
            bin_ref   String,
            bin_id    String,
            category  LowCardinality(String),
            old_level Float64,
            new_level Float64,
            delta     Float64,
            status    LowCardinality(String),
            ts        DateTime64(3, 'UTC')
        )
        ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(ts)
        ORDER BY (bin_id, ts, event_id)
    `, s.table)}
}

func (s *CHHistoryStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, s.schema())
}

func (s *CHHistoryStore) StoreEvents(ctx context.Context, events []models.SimulationEvent) error {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (event_id, tick, kind, bin_ref, bin_id, category, old_level, new_level, delta, status, ts)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	if err := s.ch.InsertBatch(ctx, q, eventRows(events)); err != nil {
		s.l.Error("clickhouse store_events error",
			applogger.String("table", s.table),
			applogger.Int("rows", len(events)),
			applogger.Error(err),
		)
		return fmt.Errorf("store events: %w", err)
	}
	s.l.Debug("clickhouse store_events ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(events)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func eventRows(events []models.SimulationEvent) [][]any {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.EventID,
			e.Tick,
			string(e.Kind),
			e.BinRef,
			e.BinID,
			string(e.Category),
			e.OldLevel,
			e.NewLevel,
			e.Delta,
			string(e.Status),
			e.Timestamp.UTC(),
		})
	}
	return rows
}

// PeakHours sums fill deltas per hour of day. All 24 hours are returned.
func (s *CHHistoryStore) PeakHours(ctx context.Context, from, to time.Time) ([]models.HourStat, error) {
	q := fmt.Sprintf(`
        SELECT toHour(ts) AS h, sum(delta) AS filled
        FROM %s FINAL
        WHERE kind = ? AND ts >= ? AND ts <= ?
        GROUP BY h
        ORDER BY h
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(models.EventFilled), from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse peak_hours query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("peak hours: %w", err)
	}
	defer rows.Close()

	byHour := make(map[int]float64, 24)
	for rows.Next() {
		var (
			h      uint8
			filled float64
		)
		if err := rows.Scan(&h, &filled); err != nil {
			return nil, fmt.Errorf("scan peak hour: %w", err)
		}
		byHour[int(h)] = filled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return fillHours(byHour), nil
}

func fillHours(byHour map[int]float64) []models.HourStat {
	out := make([]models.HourStat, 24)
	for h := range out {
		out[h] = models.HourStat{Hour: h, Filled: byHour[h]}
	}
	return out
}

// Collections counts emptied events per day. Volume is the level removed.
func (s *CHHistoryStore) Collections(ctx context.Context, from, to time.Time) ([]models.DailyCollection, error) {
	q := fmt.Sprintf(`
        SELECT toDate(ts) AS d, count() AS n, sum(old_level) AS volume
        FROM %s FINAL
        WHERE kind = ? AND ts >= ? AND ts <= ?
        GROUP BY d
        ORDER BY d
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(models.EventEmptied), from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse collections query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("collections: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyCollection, 0, 32)
	for rows.Next() {
		var (
			day    time.Time
			n      uint64
			volume float64
		)
		if err := rows.Scan(&day, &n, &volume); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, models.DailyCollection{Day: day.Format(time.DateOnly), Count: int(n), Volume: volume})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHHistoryStore) Close() error {
	return nil // pool owned by the client
}
