package recipients

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store used for tests and Redis-less dev.
type MemoryStore struct {
	mu sync.RWMutex
	// machineID -> set of emails; Fleet holds fleet-wide subscribers.
	subs map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) ListRecipients(_ context.Context, machineID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for email := range s.subs[Fleet] {
		set[email] = struct{}{}
	}
	for email := range s.subs[machineID] {
		set[email] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for email := range set {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Subscribe(_ context.Context, email, machineID string) error {
	if machineID == "" {
		machineID = Fleet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[machineID] == nil {
		s.subs[machineID] = make(map[string]struct{})
	}
	s.subs[machineID][email] = struct{}{}
	return nil
}

func (s *MemoryStore) Unsubscribe(_ context.Context, email, machineID string) error {
	if machineID == "" {
		machineID = Fleet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs[machineID], email)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
