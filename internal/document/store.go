package document

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
)

// Store holds documents keyed by id, preserving insertion order. It is safe
// for concurrent use.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// NewID returns a fresh random document id.
func NewID() string {
	return uuid.NewString()
}

// Add finalizes and validates doc and stores it, assigning an id when it has none. Adding
// a document identical to the one already stored under its id is a no-op
// and reports added=false; a different document under a taken id fails with
// a *DuplicateIDError.
func (s *Store) Add(doc Document) (id string, added bool, err error) {
	doc = doc.Clone()
	doc.Finalize()
	if doc.ID == "" {
		doc.ID = NewID()
	}
	if err := Validate(&doc); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.docs[doc.ID]; ok {
		if existing.Equal(&doc) {
			return doc.ID, false, nil
		}
		return "", false, &apperrors.DuplicateIDError{ID: doc.ID}
	}
	s.insert(doc)
	return doc.ID, true, nil
}

// Lookup returns the stored document for id without copying it out. The
// caller must not modify it.
func (s *Store) Lookup(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Get returns a copy of the document stored under id.
func (s *Store) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("get %q: %w", id, apperrors.ErrDocumentNotFound)
	}
	return doc.Clone(), nil
}

// All returns copies of every document in insertion order.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*Document)
	s.order = nil
}

// Commit inserts already finalized documents that the caller has checked
// against the store. It is used by the indexer to publish a whole batch in
// one step.
func (s *Store) Commit(docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if _, ok := s.docs[doc.ID]; ok {
			continue
		}
		s.insert(doc)
	}
}

func (s *Store) insert(doc Document) {
	d := doc
	s.docs[d.ID] = &d
	s.order = append(s.order, d.ID)
}
