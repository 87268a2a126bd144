package config

import (
	"context"
	"errors"
	"fmt"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/pkg/password"

	"go.uber.org/zap"
)

// Seeder creates the bootstrap accounts
type Seeder struct {
	users repositories.UserRepository
	cfg   SeedConfig
	log   *zap.Logger
	cost  int
}

// NewSeeder creates a new seeder instance
func NewSeeder(users repositories.UserRepository, cfg SeedConfig, log *zap.Logger) *Seeder {
	return &Seeder{users: users, cfg: cfg, log: log, cost: password.DefaultCost}
}

// Run executes all seeders. A seeder whose email is not configured is skipped.
func (s *Seeder) Run(ctx context.Context) error {
	s.log.Info("Running database seeders")

	if err := s.seedAdminUser(ctx); err != nil {
		return fmt.Errorf("admin seeder: %w", err)
	}
	if err := s.seedSalesUser(ctx); err != nil {
		return fmt.Errorf("sales seeder: %w", err)
	}

	s.log.Info("Database seeding completed")
	return nil
}

// seedAdminUser creates the first administrator when none exists
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	if s.cfg.AdminEmail == "" {
		return nil
	}

	count, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.create(ctx, s.cfg.AdminEmail, s.cfg.AdminPassword, "Admin", domain.RoleAdmin)
}

// seedSalesUser creates the demo sales account once
func (s *Seeder) seedSalesUser(ctx context.Context) error {
	if s.cfg.SalesEmail == "" {
		return nil
	}

	exists, err := s.users.ExistsByEmail(ctx, s.cfg.SalesEmail)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.create(ctx, s.cfg.SalesEmail, s.cfg.SalesPassword, "Sales", domain.RoleSalesRep)
}

func (s *Seeder) create(ctx context.Context, email, plain, firstName string, role domain.Role) error {
	if !password.ValidatePassword(plain) {
		return fmt.Errorf("password for %s is too weak", email)
	}

	hash, err := password.HashWithCost(plain, s.cost)
	if err != nil {
		return err
	}

	user := &domain.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     "User",
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil
		}
		return err
	}

	s.log.Info("Seeded user", zap.String("email", user.Email), zap.String("role", string(role)))
	return nil
}
