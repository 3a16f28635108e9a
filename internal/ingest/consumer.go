package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medir/amharic-medsearch/internal/analytics"
	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/indexer"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
	"github.com/medir/amharic-medsearch/pkg/kafka"
)

// Indexer is satisfied by *indexer.Engine.
type Indexer interface {
	AddDocuments(ctx context.Context, docs []document.Document) (indexer.AddReport, error)
}

// Persister stores documents so a restart can reload them. It is satisfied
// by *source.PostgresSource.
type Persister interface {
	Save(ctx context.Context, docs []document.Document) (int, error)
}

type handlerConfig struct {
	collector *analytics.Collector
	persister Persister
}

type HandlerOption func(*handlerConfig)

func WithCollector(c *analytics.Collector) HandlerOption {
	return func(h *handlerConfig) { h.collector = c }
}

// WithPersister saves each committed batch after it has been indexed.
func WithPersister(p Persister) HandlerOption {
	return func(h *handlerConfig) { h.persister = p }
}

// HandleMessage returns a Kafka MessageHandler that indexes each batch
// event. Messages that can never succeed (undecodable, invalid or
// conflicting with an indexed document) are logged and acknowledged;
// anything else is returned so the message is redelivered.
func HandleMessage(idx Indexer, opts ...HandlerOption) kafka.MessageHandler {
	cfg := &handlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := slog.Default().With("component", "ingest-consumer")

	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := decodeBatch(value)
		if err != nil {
			logger.Error("failed to decode ingest event", "key", string(key), "error", err)
			return nil
		}
		if len(event.Documents) == 0 {
			return nil
		}

		start := time.Now()
		report, err := idx.AddDocuments(ctx, event.Documents)
		track(cfg.collector, event, report, err, time.Since(start))
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateID) || errors.Is(err, apperrors.ErrInvalidInput) {
				logger.Warn("ingest batch rejected",
					"origin", event.Origin,
					"size", len(event.Documents),
					"error", err,
				)
				return nil
			}
			return fmt.Errorf("indexing batch from %q: %w", event.Origin, err)
		}

		if cfg.persister != nil && report.Added > 0 {
			if _, err := cfg.persister.Save(ctx, addedOnly(withIDs(event.Documents, report.IDs), report.AddedIDs)); err != nil {
				logger.Error("failed to persist ingested batch", "origin", event.Origin, "error", err)
			}
		}
		logger.Info("ingest batch indexed",
			"origin", event.Origin,
			"added", report.Added,
			"skipped", report.Skipped,
		)
		return nil
	}
}

func track(c *analytics.Collector, event BatchEvent, report indexer.AddReport, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.TrackIndex(analytics.IndexEvent{
		Origin:    event.Origin,
		Added:     report.Added,
		Skipped:   report.Skipped,
		Rejected:  err != nil,
		LatencyMs: elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
	})
}

// addedOnly keeps the first document for each id in added, dropping
// identical re-adds.
func addedOnly(docs []document.Document, added []string) []document.Document {
	want := make(map[string]bool, len(added))
	for _, id := range added {
		want[id] = true
	}
	out := make([]document.Document, 0, len(added))
	for _, d := range docs {
		if want[d.ID] {
			out = append(out, d)
			delete(want, d.ID)
		}
	}
	return out
}

// withIDs copies docs with the ids the engine assigned to them.
func withIDs(docs []document.Document, ids []string) []document.Document {
	out := make([]document.Document, len(docs))
	for i := range docs {
		out[i] = docs[i].Clone()
		if i < len(ids) {
			out[i].ID = ids[i]
		}
		out[i].Finalize()
	}
	return out
}
