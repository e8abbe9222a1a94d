package kv

import "sync"

// MemoryStore is an in-memory Store used in tests and when persistence is
// unavailable (the session then lives for the process lifetime only).
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte

	// Err, when set, is returned by every operation. Lets tests exercise
	// storage-failure paths.
	Err error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, false, s.Err
	}
	v, ok := s.values[name]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Set(name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.values[name] = v
	return nil
}

func (s *MemoryStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.values, name)
	return nil
}
