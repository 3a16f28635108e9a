// Package ingest moves document batches through Kafka: Publisher validates
// and publishes them, and HandleMessage indexes them on the consuming side.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medir/amharic-medsearch/internal/document"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

// BatchEvent is the Kafka payload of one add_documents batch. Every document
// carries its id, so all consumers index it under the same key.
type BatchEvent struct {
	Origin      string              `json:"origin"`
	Documents   []document.Document `json:"documents"`
	PublishedAt time.Time           `json:"published_at"`
}

// decodeBatch accepts a BatchEvent object or a bare JSON array of documents.
func decodeBatch(value []byte) (BatchEvent, error) {
	var event BatchEvent
	if trimmed := bytes.TrimSpace(value); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &event.Documents); err != nil {
			return event, fmt.Errorf("%w: decoding document array: %w", apperrors.ErrInvalidInput, err)
		}
		return event, nil
	}
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("%w: decoding batch event: %w", apperrors.ErrInvalidInput, err)
	}
	return event, nil
}
