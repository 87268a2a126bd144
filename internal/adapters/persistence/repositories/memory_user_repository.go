package repositories

import (
	"context"
	"sync"
	"time"

	"salesforge-api/internal/core/domain"
)

// MemoryUserRepository is an in-process credential store
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[uint]domain.User
	byEmail map[string]uint
	nextID  uint
	now     func() time.Time
}

// NewMemoryUserRepository creates an empty credential store. A nil clock means time.Now.
func NewMemoryUserRepository(now func() time.Time) *MemoryUserRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryUserRepository{
		users:   make(map[uint]domain.User),
		byEmail: make(map[string]uint),
		nextID:  1,
		now:     now,
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrDuplicateEntry
	}

	now := r.now().UTC()
	user.ID = r.nextID
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	r.nextID++

	r.users[user.ID] = *user
	r.byEmail[email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[normalizeEmail(email)]
	return ok, nil
}

func (r *MemoryUserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// SetActive flips the active flag of a user
func (r *MemoryUserRepository) SetActive(id uint, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	user.Active = active
	user.UpdatedAt = r.now().UTC()
	r.users[id] = user
	return nil
}

func (r *MemoryUserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
