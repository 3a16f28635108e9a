package index

import (
	"sort"
	"sync"

	"github.com/medir/amharic-medsearch/internal/document"
)

// MemoryIndex is the in-memory inverted index: term -> docID -> posting,
// plus the per-document and per-field length statistics the ranker needs.
type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]map[string]*Posting
	docs        map[string]*DocStats
	fieldTotals map[document.Field]int64
	postings    int
	totalTokens int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:       make(map[string]map[string]*Posting),
		docs:        make(map[string]*DocStats),
		fieldTotals: make(map[document.Field]int64),
	}
}

// AddBatch merges every document under a single write lock so readers see
// either none or all of the batch. Documents already present are skipped;
// the number actually added is returned.
func (m *MemoryIndex) AddBatch(batch []IndexedDocument) int {
	if len(batch) == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for i := range batch {
		if m.addLocked(&batch[i]) {
			added++
		}
	}
	return added
}

// AddDocument indexes a single document.
func (m *MemoryIndex) AddDocument(doc IndexedDocument) bool {
	return m.AddBatch([]IndexedDocument{doc}) == 1
}

func (m *MemoryIndex) addLocked(doc *IndexedDocument) bool {
	if _, exists := m.docs[doc.ID]; exists {
		return false
	}
	stats := &DocStats{
		DocID:        doc.ID,
		FieldLengths: make(map[document.Field]int, len(doc.Fields)),
	}
	termData := make(map[string]*Posting)
	for field, terms := range doc.Fields {
		if len(terms) == 0 {
			continue
		}
		stats.FieldLengths[field] = len(terms)
		stats.Length += len(terms)
		m.fieldTotals[field] += int64(len(terms))
		for _, term := range terms {
			p, ok := termData[term]
			if !ok {
				p = &Posting{
					DocID:      doc.ID,
					FieldFreqs: make(map[document.Field]int, 2),
				}
				termData[term] = p
			}
			p.Frequency++
			p.FieldFreqs[field]++
		}
	}

	for term, posting := range termData {
		docs, ok := m.index[term]
		if !ok {
			docs = make(map[string]*Posting)
			m.index[term] = docs
		}
		docs[doc.ID] = posting
		m.postings++
	}
	m.docs[doc.ID] = stats
	m.totalTokens += int64(stats.Length)
	return true
}

// Postings returns a copy of the posting list for term, sorted by DocID.
func (m *MemoryIndex) Postings(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, posting.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// DocFreq is the number of documents containing term.
func (m *MemoryIndex) DocFreq(term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index[term])
}

func (m *MemoryIndex) Contains(docID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[docID]
	return ok
}

// DocStats returns the field lengths of docID.
func (m *MemoryIndex) DocStats(docID string) (DocStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.docs[docID]
	if !ok {
		return DocStats{}, false
	}
	return *ds, true
}

// AvgFieldLengths returns the mean term count of every field over all
// indexed documents. Documents with an empty field count as length zero.
func (m *MemoryIndex) AvgFieldLengths() map[document.Field]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[document.Field]float64, len(m.fieldTotals))
	if len(m.docs) == 0 {
		return out
	}
	for f, total := range m.fieldTotals {
		out[f] = float64(total) / float64(len(m.docs))
	}
	return out
}

// AvgDocLength is the mean number of terms per document.
func (m *MemoryIndex) AvgDocLength() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.docs) == 0 {
		return 0
	}
	return float64(m.totalTokens) / float64(len(m.docs))
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		DocumentCount: len(m.docs),
		TermCount:     len(m.index),
		PostingCount:  m.postings,
		TotalTokens:   m.totalTokens,
	}
}

// Terms returns every indexed term in sorted order.
func (m *MemoryIndex) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.index))
	for t := range m.index {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = make(map[string]*DocStats)
	m.fieldTotals = make(map[document.Field]int64)
	m.postings = 0
	m.totalTokens = 0
}
