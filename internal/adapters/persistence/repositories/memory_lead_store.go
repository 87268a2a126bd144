package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"salesforge-api/internal/core/domain"
)

// MemoryLeadStore keeps leads in a map guarded by one RWMutex.
// Scan works on a snapshot taken under the read lock.
type MemoryLeadStore struct {
	mu     sync.RWMutex
	leads  map[uint]domain.Lead
	nextID uint
	now    func() time.Time
}

// NewMemoryLeadStore creates an empty store. A nil clock means time.Now.
func NewMemoryLeadStore(now func() time.Time) *MemoryLeadStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryLeadStore{
		leads:  make(map[uint]domain.Lead),
		nextID: 1,
		now:    now,
	}
}

func (s *MemoryLeadStore) Insert(ctx context.Context, lead *domain.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(timestampPrecision)
	lead.ID = s.nextID
	lead.CreatedAt = now
	lead.UpdatedAt = now
	s.nextID++
	s.leads[lead.ID] = *lead
	return nil
}

func (s *MemoryLeadStore) Get(ctx context.Context, id uint) (*domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lead, nil
}

func (s *MemoryLeadStore) Update(ctx context.Context, id uint, mutate func(*domain.Lead) error) (*domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	lead := current
	if err := mutate(&lead); err != nil {
		return nil, err
	}

	lead.ID = current.ID
	lead.OwnerID = current.OwnerID
	lead.CreatedAt = current.CreatedAt
	lead.UpdatedAt = s.now().UTC().Truncate(timestampPrecision)
	if lead.UpdatedAt.Before(lead.CreatedAt) {
		lead.UpdatedAt = lead.CreatedAt
	}
	s.leads[id] = lead
	return &lead, nil
}

func (s *MemoryLeadStore) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.leads, id)
	return nil
}

// Scan visits a snapshot of the store in id order
func (s *MemoryLeadStore) Scan(ctx context.Context, visit func(domain.Lead) bool) error {
	s.mu.RLock()
	snapshot := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		snapshot = append(snapshot, lead)
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	for _, lead := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !visit(lead) {
			return nil
		}
	}
	return nil
}

func (s *MemoryLeadStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
