package source

import (
	"context"
	_ "embed"
	"strings"

	"github.com/medir/amharic-medsearch/internal/document"
)

//go:embed sample.csv
var sampleCSV string

// SampleSource serves the ten built-in medicine records. It is the default
// source for local development.
type SampleSource struct{}

func Sample() SampleSource { return SampleSource{} }

func (SampleSource) Load(ctx context.Context) ([]document.Document, error) {
	return ParseCSV(ctx, strings.NewReader(sampleCSV))
}

// SampleCSV returns the raw embedded CSV.
func SampleCSV() string {
	return sampleCSV
}
