package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/medir/amharic-medsearch/internal/document"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

// localisedSuffix marks Amharic-language columns (title_am, ...).
const localisedSuffix = "_am"

const (
	columnID    = "id"
	columnPrice = "price"
)

// CSVSource reads documents from a CSV file with a header row.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Load(ctx context.Context) ([]document.Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening csv source %s: %w", s.Path, err)
	}
	defer f.Close()
	docs, err := ParseCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parsing csv source %s: %w", s.Path, err)
	}
	return docs, nil
}

// ParseCSV reads a header row followed by one document per row. Column
// names are matched case-insensitively with an optional "_am" suffix;
// unknown columns are kept in Extra under their original header. Rows
// without an id get "doc-<n>", n being the 1-based data row number.
func ParseCSV(ctx context.Context, r io.Reader) ([]document.Document, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []document.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
		columns[i] = canonicalColumn(header[i])
	}

	docs := make([]document.Document, 0, 16)
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %v", row, apperrors.ErrInvalidInput, err)
		}
		if isBlankRecord(record) {
			continue
		}
		doc, err := recordToDocument(header, columns, record, row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func recordToDocument(header, columns, record []string, row int) (document.Document, error) {
	var doc document.Document
	for i, value := range record {
		value = strings.TrimSpace(value)
		switch col := columns[i]; col {
		case columnID:
			doc.ID = value
		case columnPrice:
			if value == "" {
				continue
			}
			price, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return doc, fmt.Errorf("row %d: price %q: %w", row, value, apperrors.ErrInvalidInput)
			}
			doc.Price = price
		default:
			if doc.Set(col, value) {
				continue
			}
			if value == "" || header[i] == "" {
				continue
			}
			if doc.Extra == nil {
				doc.Extra = make(map[string]string)
			}
			doc.Extra[header[i]] = value
		}
	}
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", row)
	}
	doc.Finalize()
	return doc, nil
}

func canonicalColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, localisedSuffix)
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
