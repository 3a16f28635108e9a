package index

import "github.com/medir/amharic-medsearch/internal/document"

// Posting records how often a term occurs in one document, in total and per
// field. Frequency is always the sum of FieldFreqs.
type Posting struct {
	DocID      string
	Frequency  int
	FieldFreqs map[document.Field]int
}

type PostingList []Posting

// IndexedDocument is a document reduced to the normalised terms of each
// searchable field, ready to be merged into the index.
type IndexedDocument struct {
	ID     string
	Fields map[document.Field][]string
}

// DocStats carries the per-field term counts of one indexed document.
type DocStats struct {
	DocID        string
	FieldLengths map[document.Field]int
	Length       int
}

// Stats is a point-in-time summary of the index.
type Stats struct {
	DocumentCount int
	TermCount     int
	PostingCount  int
	TotalTokens   int64
}

func (p Posting) clone() Posting {
	ff := make(map[document.Field]int, len(p.FieldFreqs))
	for f, n := range p.FieldFreqs {
		ff[f] = n
	}
	p.FieldFreqs = ff
	return p
}
