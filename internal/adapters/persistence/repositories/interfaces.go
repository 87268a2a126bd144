package repositories

import (
	"context"
	"time"

	"salesforge-api/internal/core/domain"
)

// UserRepository is the credential store.
// Emails are stored lower-cased and matched case-insensitively.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// LeadStore is the lead record store. It alone assigns ids and timestamps,
// and every mutation is atomic with respect to other mutations of the same id.
type LeadStore interface {
	// Insert assigns ID, CreatedAt and UpdatedAt on lead.
	Insert(ctx context.Context, lead *domain.Lead) error
	Get(ctx context.Context, id uint) (*domain.Lead, error)
	// Update runs mutate on the current record and persists the result in one atomic step.
	// An error from mutate aborts the update and is returned unchanged.
	Update(ctx context.Context, id uint, mutate func(*domain.Lead) error) (*domain.Lead, error)
	Delete(ctx context.Context, id uint) error
	// Scan visits every lead until visit returns false.
	Scan(ctx context.Context, visit func(domain.Lead) bool) error
}

// LeadSearcher is implemented by stores that evaluate a filter natively.
// Results must follow filter.Sort with ascending id as the final tie-break.
type LeadSearcher interface {
	SearchLeads(ctx context.Context, filter domain.LeadFilter, offset, limit int) ([]domain.Lead, int64, error)
}

// LeadCounter is implemented by stores that aggregate natively.
type LeadCounter interface {
	CountLeads(ctx context.Context, recentSince time.Time) (*domain.LeadStatistics, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}
