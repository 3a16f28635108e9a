// Package indexer owns the document store and inverted index of the search
// service. All writes go through Engine so that every batch becomes visible
// to searches in one step.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/indexer/index"
	"github.com/medir/amharic-medsearch/internal/indexer/tokenizer"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
	"github.com/medir/amharic-medsearch/pkg/metrics"
)

// Engine pairs the document store with its inverted index.
type Engine struct {
	// writeMu serialises writers so that validation against the store and
	// the commit that follows see the same state.
	writeMu sync.Mutex
	// mu guards the store/index pair: commits hold it exclusively, searches
	// hold it shared.
	mu         sync.RWMutex
	store      *document.Store
	index      *index.MemoryIndex
	tok        *tokenizer.Tokenizer
	generation atomic.Uint64
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Engine)

func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(e *Engine) { e.tok = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		store:  document.NewStore(),
		index:  index.NewMemoryIndex(),
		tok:    tokenizer.Default(),
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddReport describes the outcome of a batch. IDs holds the id of every
// input document in order, including generated ones; AddedIDs only those
// that were new.
type AddReport struct {
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids"`
	AddedIDs []string `json:"-"`
}

type prepared struct {
	docs    []document.Document
	indexed []index.IndexedDocument
	report  AddReport
}

// AddDocuments indexes docs incrementally. The batch is validated as a whole
// first: an id that collides with a different document, in the store or
// earlier in the batch, rejects the entire batch with a
// *apperrors.DuplicateIDError and nothing becomes visible. Documents
// identical to ones already stored are skipped.
func (e *Engine) AddDocuments(ctx context.Context, docs []document.Document) (AddReport, error) {
	if len(docs) == 0 {
		return AddReport{IDs: []string{}}, nil
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	p, err := e.prepare(ctx, docs, e.store)
	if err != nil {
		e.recordBatch("rejected")
		e.logger.Warn("document batch rejected", "size", len(docs), "error", err)
		return AddReport{}, err
	}

	e.mu.Lock()
	e.store.Commit(p.docs)
	e.index.AddBatch(p.indexed)
	if p.report.Added > 0 {
		e.generation.Add(1)
	}
	e.mu.Unlock()

	e.recordBatch("committed")
	e.observe(p.report.Added)
	e.logger.Info("documents indexed",
		"added", p.report.Added,
		"skipped", p.report.Skipped,
		"documents", e.index.DocCount(),
		"duration", time.Since(start),
	)
	return p.report, nil
}

// Initialize discards the current collection and indexes docs from scratch.
// The new store and index replace the old ones in one step, so searches
// never observe a partially rebuilt index.
func (e *Engine) Initialize(ctx context.Context, docs []document.Document) (AddReport, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	store := document.NewStore()
	p, err := e.prepare(ctx, docs, store)
	if err != nil {
		e.recordBatch("rejected")
		return AddReport{}, fmt.Errorf("initializing index: %w", err)
	}
	idx := index.NewMemoryIndex()
	store.Commit(p.docs)
	idx.AddBatch(p.indexed)

	e.mu.Lock()
	e.store = store
	e.index = idx
	e.generation.Add(1)
	e.mu.Unlock()

	e.recordBatch("committed")
	e.observe(p.report.Added)
	e.logger.Info("index initialized",
		"documents", p.report.Added,
		"terms", idx.Stats().TermCount,
		"duration", time.Since(start),
	)
	return p.report, nil
}

// Rebuild re-indexes the current collection from scratch with the current
// tokenizer.
func (e *Engine) Rebuild(ctx context.Context) (AddReport, error) {
	return e.Initialize(ctx, e.Documents())
}

func (e *Engine) prepare(ctx context.Context, docs []document.Document, against *document.Store) (*prepared, error) {
	p := &prepared{
		docs:    make([]document.Document, 0, len(docs)),
		indexed: make([]index.IndexedDocument, 0, len(docs)),
		report:  AddReport{IDs: make([]string, 0, len(docs))},
	}
	inBatch := make(map[string]int, len(docs))
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := docs[i].Clone()
		doc.Finalize()
		if doc.ID == "" {
			doc.ID = document.NewID()
		}
		if err := document.Validate(&doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		p.report.IDs = append(p.report.IDs, doc.ID)

		if j, seen := inBatch[doc.ID]; seen {
			if p.docs[j].Equal(&doc) {
				p.report.Skipped++
				continue
			}
			return nil, &apperrors.DuplicateIDError{ID: doc.ID}
		}
		if existing, ok := against.Lookup(doc.ID); ok {
			if existing.Equal(&doc) {
				p.report.Skipped++
				continue
			}
			return nil, &apperrors.DuplicateIDError{ID: doc.ID}
		}

		inBatch[doc.ID] = len(p.docs)
		p.report.AddedIDs = append(p.report.AddedIDs, doc.ID)
		p.docs = append(p.docs, doc)
		p.indexed = append(p.indexed, e.analyze(&doc))
	}
	p.report.Added = len(p.docs)
	return p, nil
}

// analyze runs every searchable field through the tokenizer.
func (e *Engine) analyze(doc *document.Document) index.IndexedDocument {
	fields := make(map[document.Field][]string, len(document.SearchableFields))
	for _, f := range document.SearchableFields {
		if terms := e.tok.Terms(doc.Value(f)); len(terms) > 0 {
			fields[f] = terms
		}
	}
	return index.IndexedDocument{ID: doc.ID, Fields: fields}
}

func (e *Engine) GetDocument(id string) (document.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Get(id)
}

// Documents returns every stored document in insertion order.
func (e *Engine) Documents() []document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.All()
}

// IndexStats is the summary returned by IndexStatistics.
type IndexStats struct {
	DocumentCount         int                `json:"document_count"`
	TermCount             int                `json:"term_count"`
	PostingCount          int                `json:"posting_count"`
	TotalTokens           int64              `json:"total_tokens"`
	AverageFieldLength    map[string]float64 `json:"average_field_length"`
	AverageDocumentLength float64            `json:"average_document_length"`
	Generation            uint64             `json:"generation"`
}

func (e *Engine) IndexStatistics() IndexStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := e.index.Stats()
	avg := make(map[string]float64)
	for f, v := range e.index.AvgFieldLengths() {
		avg[string(f)] = v
	}
	return IndexStats{
		DocumentCount:         st.DocumentCount,
		TermCount:             st.TermCount,
		PostingCount:          st.PostingCount,
		TotalTokens:           st.TotalTokens,
		AverageFieldLength:    avg,
		AverageDocumentLength: e.index.AvgDocLength(),
		Generation:            e.generation.Load(),
	}
}

// Generation increases whenever the indexed collection changes.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tok
}

// Read runs fn with a consistent view of the index. No batch is committed
// while fn runs; fn must not call back into the Engine's write methods.
func (e *Engine) Read(fn func(v View)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(View{store: e.store, index: e.index, generation: e.generation.Load()})
}

func (e *Engine) recordBatch(status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexBatchesTotal.WithLabelValues(status).Inc()
}

func (e *Engine) observe(added int) {
	if e.metrics == nil {
		return
	}
	e.metrics.DocsIndexedTotal.Add(float64(added))
	st := e.index.Stats()
	e.metrics.IndexDocuments.Set(float64(st.DocumentCount))
	e.metrics.IndexTerms.Set(float64(st.TermCount))
}
