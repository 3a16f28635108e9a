package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medir/amharic-medsearch/internal/document"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
	"github.com/medir/amharic-medsearch/pkg/kafka"
	"github.com/medir/amharic-medsearch/pkg/resilience"
)

const DefaultBatchSize = 100

// EventPublisher is the subset of *kafka.Producer the publisher needs.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type PublishReport struct {
	Documents int      `json:"documents"`
	Events    int      `json:"events"`
	Persisted int      `json:"persisted"`
	IDs       []string `json:"ids"`
}

// Publisher validates document batches, optionally persists them, and
// publishes them to the ingest topic in chunks of batchSize documents.
type Publisher struct {
	producer  EventPublisher
	persister Persister
	batchSize int
	backoff   resilience.Backoff
	logger    *slog.Logger
}

// NewPublisher creates a Publisher. persister may be nil.
func NewPublisher(producer EventPublisher, persister Persister, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Publisher{
		producer:  producer,
		persister: persister,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "ingest-publisher"),
	}
}

// Publish assigns ids to documents that lack one, so every consumer indexes
// a document under the same id. Nothing is published if any document is
// invalid or two documents share an id with different content.
func (p *Publisher) Publish(ctx context.Context, origin string, docs []document.Document) (*PublishReport, error) {
	report := &PublishReport{IDs: make([]string, 0, len(docs))}
	if len(docs) == 0 {
		return report, nil
	}

	prepared := make([]document.Document, 0, len(docs))
	seen := make(map[string]int, len(docs))
	for i := range docs {
		doc := docs[i].Clone()
		doc.Finalize()
		if doc.ID == "" {
			doc.ID = document.NewID()
		}
		if err := document.Validate(&doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if j, ok := seen[doc.ID]; ok {
			if !prepared[j].Equal(&doc) {
				return nil, &apperrors.DuplicateIDError{ID: doc.ID}
			}
			report.IDs = append(report.IDs, doc.ID)
			continue
		}
		seen[doc.ID] = len(prepared)
		prepared = append(prepared, doc)
		report.IDs = append(report.IDs, doc.ID)
	}
	report.Documents = len(prepared)

	if p.persister != nil {
		n, err := p.persister.Save(ctx, prepared)
		if err != nil {
			return nil, fmt.Errorf("persisting documents: %w", err)
		}
		report.Persisted = n
	}

	now := time.Now().UTC()
	events := make([]kafka.Event, 0, (len(prepared)+p.batchSize-1)/p.batchSize)
	for start := 0; start < len(prepared); start += p.batchSize {
		end := min(start+p.batchSize, len(prepared))
		events = append(events, kafka.Event{
			Key: origin,
			Value: BatchEvent{
				Origin:      origin,
				Documents:   prepared[start:end],
				PublishedAt: now,
			},
		})
	}
	// Consumers skip identical redeliveries, so a retried batch is harmless.
	err := resilience.Retry(ctx, "publish documents", p.backoff, func(ctx context.Context) error {
		return p.producer.PublishBatch(ctx, events)
	})
	if err != nil {
		return nil, fmt.Errorf("publishing %d documents: %w", len(prepared), err)
	}
	report.Events = len(events)

	p.logger.Info("documents published",
		"origin", origin,
		"documents", report.Documents,
		"events", report.Events,
		"persisted", report.Persisted,
	)
	return report, nil
}
