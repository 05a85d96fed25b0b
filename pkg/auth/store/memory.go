package store

import "sync"

// MemoryStore keeps records in process memory. Used by tests and by the
// demo server, which has no business writing to the operator's keyring.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Save(key Key, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Backend = ""
	s.records[key] = rec
	return nil
}

func (s *MemoryStore) Load(key Key) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if ok {
		rec.Backend = BackendMemory
	}
	return rec, ok, nil
}

func (s *MemoryStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
