// Package revocation holds the denylist of logged-out session tokens.
package revocation

import (
	"context"
	"sync"
	"time"
)

// MemorySet keeps revoked token keys until their tokens would have expired anyway
type MemorySet struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemorySet creates an empty set. A nil clock means time.Now.
func NewMemorySet(now func() time.Time) *MemorySet {
	if now == nil {
		now = time.Now
	}
	return &MemorySet{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Add records key until expiresAt. Keys already past expiry are ignored.
func (s *MemorySet) Add(ctx context.Context, key string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.now().Before(expiresAt) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; !ok || expiresAt.After(cur) {
		s.entries[key] = expiresAt
	}
	return nil
}

// Contains reports whether key is revoked. An expired entry is dropped on the way out.
func (s *MemorySet) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := s.now()
	s.mu.RLock()
	expiresAt, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.Before(expiresAt) {
		return true, nil
	}

	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && !now.Before(cur) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return false, nil
}

// Sweep removes every expired entry and returns how many went
func (s *MemorySet) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries, expired or not
func (s *MemorySet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
