// Package source loads document collections for the search engine: the
// embedded sample rows, CSV files and a PostgreSQL table.
package source

import (
	"context"
	"fmt"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/pkg/config"
	"github.com/medir/amharic-medsearch/pkg/postgres"
)

// Source produces the initial document collection.
type Source interface {
	Load(ctx context.Context) ([]document.Document, error)
}

// FromConfig builds the configured Source. The returned close function
// releases any connection it opened and is never nil.
func FromConfig(ctx context.Context, cfg *config.Config) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source.Kind {
	case config.SourceSample, "":
		return Sample(), noop, nil
	case config.SourceCSV:
		return NewCSVSource(cfg.Source.CSVPath), noop, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting document source: %w", err)
		}
		return NewPostgresSource(client, cfg.Source.Table), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
