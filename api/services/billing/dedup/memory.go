package dedup

import (
	"context"
	"sync"
	"time"
)

// MemorySet is a process-local Set. Expired ids are swept on Claim.
type MemorySet struct {
	mu        sync.Mutex
	ttl       time.Duration
	claimed   map[string]time.Time
	now       func() time.Time
	lastSweep time.Time
}

func NewMemorySet(ttl time.Duration) *MemorySet {
	return &MemorySet{ttl: ttl, claimed: make(map[string]time.Time), now: time.Now}
}

func (s *MemorySet) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) > s.ttl/4 {
		for k, exp := range s.claimed {
			if !now.Before(exp) {
				delete(s.claimed, k)
			}
		}
		s.lastSweep = now
	}
	if exp, ok := s.claimed[id]; ok && now.Before(exp) {
		return false, nil
	}
	s.claimed[id] = now.Add(s.ttl)
	return true, nil
}

func (s *MemorySet) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, id)
	return nil
}

func (s *MemorySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claimed)
}
