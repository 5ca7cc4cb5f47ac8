package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// =============================================================================
// IN-MEMORY DOCUMENT STORE
// Mirrors the Postgres store for tests and credential-less local runs.
// =============================================================================

// MemoryStore implements DocumentStore in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

func (s *MemoryStore) GetByID(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) QueryByField(ctx context.Context, collection, field, value string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if v, ok := doc[field]; ok && fmt.Sprintf("%v", v) == value {
			return cloneDocument(doc), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, doc Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	if existing, ok := coll[id]; ok && merge {
		merged := cloneDocument(existing)
		for k, v := range doc {
			merged[k] = v
		}
		coll[id] = merged
		return nil
	}
	coll[id] = cloneDocument(doc)
	return nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// cloneDocument deep-copies through JSON so callers can't alias stored state.
func cloneDocument(doc Document) Document {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return Document{}
	}
	return out
}
