package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/pkg/postgres"
)

// columnOrder is the table layout shared by reads and writes.
var columnOrder = []string{
	"id", "title", "generic_name", "category", "symptom", "usage",
	"side_effects", "contraindications", "dosage", "manufacturer",
	"availability", "price",
}

// PostgresSource loads documents from a medicines table and can persist
// new ones to it.
type PostgresSource struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client, table string) *PostgresSource {
	if table == "" {
		table = "medicines"
	}
	return &PostgresSource{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

// Client exposes the connection so other stores can share it.
func (s *PostgresSource) Client() *postgres.Client {
	return s.client
}

// EnsureSchema creates the table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, createTableQuery(s.table)); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSource) Load(ctx context.Context) ([]document.Document, error) {
	rows, err := s.client.DB.QueryContext(ctx, selectQuery(s.table))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	docs := make([]document.Document, 0, 64)
	for rows.Next() {
		var (
			id    string
			text  [10]sql.NullString
			price sql.NullFloat64
		)
		dest := []any{&id}
		for i := range text {
			dest = append(dest, &text[i])
		}
		dest = append(dest, &price)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}

		doc := document.Document{ID: id, Price: price.Float64}
		for i, f := range document.SearchableFields {
			doc.Set(string(f), text[i].String)
		}
		doc.Finalize()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", s.table, err)
	}
	s.logger.Info("documents loaded", "table", s.table, "count", len(docs))
	return docs, nil
}

// Save inserts docs in one transaction. Rows whose id already exists are
// left untouched; the number of new rows is returned.
func (s *PostgresSource) Save(ctx context.Context, docs []document.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	inserted := 0
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertQuery(s.table))
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i := range docs {
			d := &docs[i]
			args := []any{d.ID}
			for _, f := range document.SearchableFields {
				args = append(args, d.Value(f))
			}
			args = append(args, d.Price)
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("inserting %q: %w", d.ID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func selectQuery(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY id",
		strings.Join(columnOrder, ", "), pq.QuoteIdentifier(table))
}

func insertQuery(table string) string {
	placeholders := make([]string, len(columnOrder))
	for i := range columnOrder {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		pq.QuoteIdentifier(table), strings.Join(columnOrder, ", "), strings.Join(placeholders, ", "))
}

func createTableQuery(table string) string {
	cols := make([]string, 0, len(columnOrder))
	for _, c := range columnOrder {
		switch c {
		case "id":
			cols = append(cols, "id TEXT PRIMARY KEY")
		case "price":
			cols = append(cols, "price DOUBLE PRECISION NOT NULL DEFAULT 0")
		default:
			cols = append(cols, c+" TEXT NOT NULL DEFAULT ''")
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pq.QuoteIdentifier(table), strings.Join(cols, ", "))
}
