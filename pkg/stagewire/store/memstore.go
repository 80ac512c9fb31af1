package store

import (
	"sort"
	"sync"
)

// MemStore is a map-backed Store for unit tests and offline use. It mirrors
// the Redis store's observable behavior: absent records report ok=false,
// deletes are idempotent, Keys is sorted, Apply is a single critical section.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]map[string]map[string]string)}
}

func (s *MemStore) Get(table, key string) (map[string]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.tables[table][key]
	if !ok {
		return nil, false, nil
	}
	return copyFields(fields), true, nil
}

func (s *MemStore) Put(table, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(table, key, fields)
	return nil
}

func (s *MemStore) Delete(table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables[table], key)
	return nil
}

func (s *MemStore) Keys(table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.tables[table]))
	for k := range s.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemStore) Apply(changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, change := range changes {
		if change.Fields == nil {
			delete(s.tables[change.Table], change.Key)
			continue
		}
		s.put(change.Table, change.Key, change.Fields)
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

// put merges fields into an existing record, matching Redis HSET semantics.
func (s *MemStore) put(table, key string, fields map[string]string) {
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]map[string]string)
		s.tables[table] = t
	}
	rec, ok := t[key]
	if !ok {
		rec = make(map[string]string, len(fields))
		t[key] = rec
	}
	for k, v := range fields {
		rec[k] = v
	}
}

// copyFields returns a shallow copy of the map (avoids aliasing caller's map).
func copyFields(fields map[string]string) map[string]string {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
