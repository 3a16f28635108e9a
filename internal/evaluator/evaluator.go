// Package evaluator measures retrieval quality against relevance judgments
// and synthesises judgments from the document collection when no labelled
// set exists.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/searcher/executor"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

const (
	DefaultTopK        = 10
	DefaultConcurrency = 4
)

// Judgment pairs a query with the ids of the documents relevant to it.
// Field names the document field the query was drawn from; it is empty for
// hand-labelled judgments.
type Judgment struct {
	Query    string         `json:"query"`
	Relevant []string       `json:"relevant"`
	Field    document.Field `json:"field,omitempty"`
}

// Searcher is satisfied by *executor.Executor.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
}

type Options struct {
	TopK        int
	Concurrency int
}

// QueryMetrics holds the scores of a single judgment.
type QueryMetrics struct {
	Query             string  `json:"query"`
	Field             string  `json:"field,omitempty"`
	Relevant          int     `json:"relevant"`
	Retrieved         int     `json:"retrieved"`
	RelevantRetrieved int     `json:"relevant_retrieved"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1                float64 `json:"f1"`
	AveragePrecision  float64 `json:"average_precision"`
}

// Metrics are means over every judgment, including those with no relevant
// or no retrieved documents, which score zero.
type Metrics struct {
	Precision            float64        `json:"precision"`
	Recall               float64        `json:"recall"`
	F1                   float64        `json:"f1"`
	MeanAveragePrecision float64        `json:"mean_average_precision"`
	Queries              int            `json:"queries"`
	TopK                 int            `json:"top_k"`
	PerQuery             []QueryMetrics `json:"per_query"`
}

// GenerateTestQueries builds one judgment per distinct non-empty symptom and
// category value. A document is relevant when it carries exactly that value.
func GenerateTestQueries(docs []document.Document) []Judgment {
	fields := []document.Field{document.FieldSymptom, document.FieldCategory}
	var judgments []Judgment
	for _, f := range fields {
		byValue := make(map[string][]string)
		for i := range docs {
			v := docs[i].Value(f)
			if v == "" {
				continue
			}
			byValue[v] = append(byValue[v], docs[i].ID)
		}
		for value, ids := range byValue {
			sort.Strings(ids)
			judgments = append(judgments, Judgment{Query: value, Relevant: ids, Field: f})
		}
	}
	sort.Slice(judgments, func(i, j int) bool {
		if judgments[i].Field != judgments[j].Field {
			return judgments[i].Field < judgments[j].Field
		}
		return judgments[i].Query < judgments[j].Query
	})
	return judgments
}

// LoadJudgments decodes a JSON array of judgments.
func LoadJudgments(r io.Reader) ([]Judgment, error) {
	var judgments []Judgment
	if err := json.NewDecoder(r).Decode(&judgments); err != nil {
		return nil, fmt.Errorf("decoding judgments: %w: %w", apperrors.ErrInvalidInput, err)
	}
	return judgments, nil
}

// Evaluate runs every judgment's query through s, keeping the top K hits,
// and averages precision, recall, F1 and average precision.
func Evaluate(ctx context.Context, s Searcher, judgments []Judgment, opts Options) (*Metrics, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	logger := slog.Default().With("component", "evaluator")
	start := time.Now()

	perQuery := make([]QueryMetrics, len(judgments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, j := range judgments {
		g.Go(func() error {
			res, err := s.Search(gctx, j.Query, opts.TopK)
			if err != nil {
				return fmt.Errorf("evaluating query %q: %w", j.Query, err)
			}
			ids := res.IDs()
			if len(ids) > opts.TopK {
				ids = ids[:opts.TopK]
			}
			perQuery[i] = score(j, ids)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Metrics{Queries: len(judgments), TopK: opts.TopK, PerQuery: perQuery}
	if len(perQuery) == 0 {
		m.PerQuery = []QueryMetrics{}
		return m, nil
	}
	for _, q := range perQuery {
		m.Precision += q.Precision
		m.Recall += q.Recall
		m.F1 += q.F1
		m.MeanAveragePrecision += q.AveragePrecision
	}
	n := float64(len(perQuery))
	m.Precision /= n
	m.Recall /= n
	m.F1 /= n
	m.MeanAveragePrecision /= n

	logger.Info("evaluation completed",
		"queries", m.Queries,
		"top_k", m.TopK,
		"precision", m.Precision,
		"recall", m.Recall,
		"f1", m.F1,
		"map", m.MeanAveragePrecision,
		"duration", time.Since(start),
	)
	return m, nil
}

func score(j Judgment, retrieved []string) QueryMetrics {
	relevant := make(map[string]struct{}, len(j.Relevant))
	for _, id := range j.Relevant {
		relevant[id] = struct{}{}
	}
	q := QueryMetrics{
		Query:     j.Query,
		Field:     string(j.Field),
		Relevant:  len(relevant),
		Retrieved: len(retrieved),
	}
	if len(relevant) == 0 || len(retrieved) == 0 {
		return q
	}

	var precisionSum float64
	for i, id := range retrieved {
		if _, ok := relevant[id]; ok {
			q.RelevantRetrieved++
			precisionSum += float64(q.RelevantRetrieved) / float64(i+1)
		}
	}
	q.Precision = float64(q.RelevantRetrieved) / float64(len(retrieved))
	q.Recall = float64(q.RelevantRetrieved) / float64(len(relevant))
	if q.Precision+q.Recall > 0 {
		q.F1 = 2 * q.Precision * q.Recall / (q.Precision + q.Recall)
	}
	q.AveragePrecision = precisionSum / float64(len(relevant))
	return q
}
