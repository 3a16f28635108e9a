package document

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

const (
	maxIDLength    = 255
	maxFieldLength = 64 << 10
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	ID     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, e.Fields[k]))
	}
	if e.ID != "" {
		return fmt.Sprintf("document %q: %s", e.ID, strings.Join(parts, "; "))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks a finalized document. A document needs at least one
// non-empty searchable field and a finite, non-negative price.
func Validate(doc *Document) error {
	errs := make(map[string]string)

	if len(doc.ID) > maxIDLength {
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	}
	if strings.TrimSpace(doc.Content) == "" {
		errs["content"] = "at least one searchable field is required"
	}
	for _, f := range SearchableFields {
		v := doc.Value(f)
		if len(v) > maxFieldLength {
			errs[string(f)] = fmt.Sprintf("%s must be at most %d bytes", f, maxFieldLength)
		} else if !utf8.ValidString(v) {
			errs[string(f)] = fmt.Sprintf("%s is not valid UTF-8", f)
		}
	}
	if math.IsNaN(doc.Price) || math.IsInf(doc.Price, 0) || doc.Price < 0 {
		errs["price"] = "price must be a non-negative number"
	}
	if len(errs) > 0 {
		return &ValidationError{ID: doc.ID, Fields: errs}
	}
	return nil
}
