// Package snapshot persists aggregated search analytics to PostgreSQL so they
// survive restarts of the searcher.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/medir/amharic-medsearch/internal/analytics"
	"github.com/medir/amharic-medsearch/pkg/postgres"
)

const DefaultTable = "analytics_snapshots"

// Snapshot is one persisted copy of the aggregated stats.
type Snapshot struct {
	Stats      analytics.AggregatedStats `json:"stats"`
	CapturedAt time.Time                 `json:"captured_at"`
}

type Store struct {
	db     *postgres.Client
	table  string
	logger *slog.Logger
}

func NewStore(db *postgres.Client, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:     db,
		table:  table,
		logger: slog.Default().With("component", "analytics-snapshots", "table", table),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	data        JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (data, captured_at) VALUES ($1, $2)`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.DB.ExecContext(ctx, q, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"total_docs_indexed", stats.TotalDocsIndexed,
	)
	return nil
}

// Latest returns the most recent snapshot, or nil when none exists.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	list, err := s.List(ctx, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// List returns up to limit snapshots, newest first. Rows that no longer
// decode are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	q := fmt.Sprintf(`SELECT data, captured_at FROM %s ORDER BY captured_at DESC, id DESC LIMIT $1`,
		pq.QuoteIdentifier(s.table))
	rows, err := s.db.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			data []byte
			snap Snapshot
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// Run saves the aggregator's stats every interval until ctx is cancelled,
// then takes a final snapshot. It blocks; callers run it in a goroutine.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("periodic snapshot started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Save(shutdownCtx, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			cancel()
			return
		}
	}
}
