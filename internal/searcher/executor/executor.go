// Package executor runs parsed queries against the indexer engine and turns
// ranked ids into search hits.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/indexer"
	"github.com/medir/amharic-medsearch/internal/indexer/index"
	"github.com/medir/amharic-medsearch/internal/searcher/parser"
	"github.com/medir/amharic-medsearch/internal/searcher/ranker"
	"github.com/medir/amharic-medsearch/pkg/metrics"
)

const (
	DefaultLimit = 10
	MaxResults   = 100
)

// Hit is one ranked document. Rank is 1-based; Content is never truncated.
type Hit struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// SearchResult is built fresh for every call. TotalHits counts every
// matching document before truncation; TermStats maps each distinct query
// term to its document frequency.
type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []Hit          `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// EmptyResult is the answer to a query with no searchable terms.
func EmptyResult(query string) *SearchResult {
	return &SearchResult{
		Query:     query,
		Results:   []Hit{},
		TermStats: map[string]int{},
	}
}

// IDs returns the hit ids in rank order.
func (r *SearchResult) IDs() []string {
	ids := make([]string, len(r.Results))
	for i, h := range r.Results {
		ids[i] = h.ID
	}
	return ids
}

type Executor struct {
	engine       *indexer.Engine
	defaultLimit int
	maxResults   int
	weights      map[document.Field]float64
	k1           float64
	b            float64
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Executor)

// WithLimits sets the fallback and maximum result window.
func WithLimits(defaultLimit, maxResults int) Option {
	return func(e *Executor) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxResults >= e.defaultLimit {
			e.maxResults = maxResults
		}
	}
}

func WithFieldWeights(w map[document.Field]float64) Option {
	return func(e *Executor) { e.weights = w }
}

// WithBM25 overrides the k1 and b parameters.
func WithBM25(k1, b float64) Option {
	return func(e *Executor) {
		e.k1 = k1
		e.b = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func New(engine *indexer.Engine, opts ...Option) *Executor {
	e := &Executor{
		engine:       engine,
		defaultLimit: DefaultLimit,
		maxResults:   MaxResults,
		weights:      ranker.DefaultFieldWeights,
		k1:           ranker.DefaultK1,
		b:            ranker.DefaultB,
		logger:       slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeLimit maps a non-positive limit to the default and clamps large
// ones to the maximum.
func (e *Executor) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	return min(limit, e.maxResults)
}

// Search parses query with the engine's tokenizer and executes it.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	return e.Execute(ctx, e.Parse(query), limit)
}

// Parse builds a plan with the same tokenizer the index was built with.
func (e *Executor) Parse(query string) *parser.QueryPlan {
	return parser.ParseWith(e.engine.Tokenizer(), query)
}

// Execute ranks the documents matching plan. An empty plan yields an empty
// result, never an error. The whole evaluation runs against one consistent
// view of the index.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	limit = e.NormalizeLimit(limit)
	if plan.IsEmpty() {
		e.record("empty", 0)
		return EmptyResult(plan.RawQuery), nil
	}

	start := time.Now()
	result := &SearchResult{
		Query:     plan.RawQuery,
		Results:   []Hit{},
		TermStats: make(map[string]int),
	}
	var candidates int
	e.engine.Read(func(v indexer.View) {
		postingsPerTerm := make(map[string]index.PostingList)
		for _, term := range plan.UniqueTerms() {
			postings := v.Postings(term)
			result.TermStats[term] = len(postings)
			if len(postings) > 0 {
				postingsPerTerm[term] = postings
			}
		}
		excluded := make(map[string]struct{})
		for _, term := range plan.UniqueExcludes() {
			for _, p := range v.Postings(term) {
				excluded[p.DocID] = struct{}{}
			}
		}

		var docIDs map[string]struct{}
		if plan.Type == parser.QueryAND {
			docIDs = intersectPostings(postingsPerTerm, len(plan.UniqueTerms()))
		} else {
			docIDs = unionPostings(postingsPerTerm)
		}
		for id := range excluded {
			delete(docIDs, id)
		}
		candidates = len(docIDs)

		filtered := filterPostings(postingsPerTerm, docIDs)
		params := ranker.RankParams{
			TotalDocs:      int64(v.DocCount()),
			AvgFieldLength: v.AvgFieldLengths(),
			FieldWeights:   e.weights,
			K1:             e.k1,
			B:              e.b,
			QueryTermFreq:  plan.TermFrequencies(),
		}
		getDocInfo := func(docID string) ranker.DocInfo {
			ds, _ := v.DocStats(docID)
			return ranker.DocInfo{FieldLengths: ds.FieldLengths}
		}
		ranked := ranker.Rank(filtered, params, getDocInfo, 0)
		result.TotalHits = len(ranked)
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		for i, sd := range ranked {
			doc, ok := v.Document(sd.DocID)
			if !ok {
				continue
			}
			result.Results = append(result.Results, Hit{
				ID:       doc.ID,
				Title:    doc.Title,
				Content:  doc.Content,
				Category: doc.Category,
				Score:    sd.Score,
				Rank:     i + 1,
			})
		}
	})

	resultType := "hit"
	if len(result.Results) == 0 {
		resultType = "zero_result"
	}
	e.record(resultType, len(result.Results))
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"type", plan.Type.String(),
		"candidates", candidates,
		"results", len(result.Results),
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Executor) record(resultType string, n int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchResultsCount.Observe(float64(n))
}

// intersectPostings keeps documents containing every one of want distinct
// terms. A term with no postings empties the result.
func intersectPostings(postingsPerTerm map[string]index.PostingList, want int) map[string]struct{} {
	if len(postingsPerTerm) == 0 || len(postingsPerTerm) < want {
		return make(map[string]struct{})
	}
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[string]struct{})
	for _, p := range postingsPerTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortestTerm {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, exists := docSet[docID]; !exists {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	result := make(map[string]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}

func filterPostings(postingsPerTerm map[string]index.PostingList, keep map[string]struct{}) map[string]index.PostingList {
	filtered := make(map[string]index.PostingList, len(postingsPerTerm))
	for term, postings := range postingsPerTerm {
		pl := make(index.PostingList, 0, len(postings))
		for _, p := range postings {
			if _, ok := keep[p.DocID]; ok {
				pl = append(pl, p)
			}
		}
		if len(pl) > 0 {
			filtered[term] = pl
		}
	}
	return filtered
}
