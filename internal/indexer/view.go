package indexer

import (
	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/indexer/index"
)

// View is a read-only window onto the index, valid only inside Engine.Read.
type View struct {
	store      *document.Store
	index      *index.MemoryIndex
	generation uint64
}

func (v View) Postings(term string) index.PostingList {
	return v.index.Postings(term)
}

func (v View) DocFreq(term string) int {
	return v.index.DocFreq(term)
}

func (v View) DocCount() int {
	return v.index.DocCount()
}

func (v View) DocStats(docID string) (index.DocStats, bool) {
	return v.index.DocStats(docID)
}

func (v View) AvgFieldLengths() map[document.Field]float64 {
	return v.index.AvgFieldLengths()
}

// Document returns the stored record for id. The result is shared and must
// not be modified.
func (v View) Document(id string) (*document.Document, bool) {
	return v.store.Lookup(id)
}

func (v View) Generation() uint64 {
	return v.generation
}
