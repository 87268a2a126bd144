package services

import (
	"context"
	"time"
)

// Note: AuthService implementation is in auth_service.go
// Note: LeadService implementation is in lead_service.go

// RevocationSet remembers logged-out tokens by key until their expiry.
// Implementations must be safe for concurrent use.
type RevocationSet interface {
	Add(ctx context.Context, key string, expiresAt time.Time) error
	Contains(ctx context.Context, key string) (bool, error)
	// Sweep drops expired entries and reports how many were removed
	Sweep(ctx context.Context) (int, error)
}
