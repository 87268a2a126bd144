package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/adapters/revocation"
	"salesforge-api/internal/config"
	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/pkg/password"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-with-enough-entropy-123456"

var _ RevocationSet = (*revocation.MemorySet)(nil)
var _ RevocationSet = (*revocation.RedisSet)(nil)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type authFixture struct {
	svc     *AuthService
	users   *repositories.MemoryUserRepository
	revoked *revocation.MemorySet
	clock   *testClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newTestClock()
	users := repositories.NewMemoryUserRepository(clock.Now)
	revoked := revocation.NewMemorySet(clock.Now)
	cfg := &config.JWTConfig{Secret: testSecret, TTL: 24 * time.Hour}
	svc := NewAuthService(users, revoked, cfg, zap.NewNop()).WithClock(clock.Now)
	return &authFixture{svc: svc, users: users, revoked: revoked, clock: clock}
}

func (f *authFixture) addUser(t *testing.T, email, plain string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := password.HashWithCost(plain, bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     string(role),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}
