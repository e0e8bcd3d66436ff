package storage

import (
	"context"
	"sync"

	"socialfeed/pkg/model"
)

// MemoryStore keeps the document in process memory. It backs tests and the
// "memory" backend.
type MemoryStore struct {
	mu    sync.RWMutex
	doc   model.Document
	saves int
}

var _ DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: model.NewDocument()}
}

func (s *MemoryStore) Load(ctx context.Context) (model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
