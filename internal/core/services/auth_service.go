package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"salesforge-api/internal/adapters/persistence/repositories"
	"salesforge-api/internal/config"
	"salesforge-api/internal/core/domain"
	"salesforge-api/internal/pkg/jwt"
	"salesforge-api/internal/pkg/metrics"
	"salesforge-api/internal/pkg/password"

	"go.uber.org/zap"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo repositories.UserRepository
	revoked  RevocationSet
	jwtCfg   *config.JWTConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	revoked RevocationSet,
	jwtCfg *config.JWTConfig,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		revoked:  revoked,
		jwtCfg:   jwtCfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RegisterInput represents registration input
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is a freshly issued token plus the identity it was issued to
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnHash spends one bcrypt comparison so unknown emails take as long as wrong passwords
func burnHash(plain string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = password.Hash("salesforge-timing-equalizer")
	})
	password.Verify(plain, dummyHash)
}

// Authenticate verifies email and password and issues a session token.
// Every credential failure is reported as ErrInvalidCredentials; the reason is only logged.
func (s *AuthService) Authenticate(ctx context.Context, email, plain string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}

	// 1. Find user by email
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			burnHash(plain)
			s.rejectLogin(email, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		metrics.RecordLogin("error")
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(plain, user.PasswordHash) {
		s.rejectLogin(email, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Check if user is active
	if !user.Active {
		s.rejectLogin(email, "inactive")
		return nil, domain.ErrInvalidCredentials
	}

	// 4. Issue token
	now := s.now()
	token, claims, err := jwt.GenerateAccessToken(user.ID, s.jwtCfg.Secret, now, s.jwtCfg.TTL)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	metrics.RecordLogin("success")
	s.log.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *AuthService) rejectLogin(email, reason string) {
	metrics.RecordLogin(reason)
	s.log.Warn("Login rejected", zap.String("email", email), zap.String("reason", reason))
}

// Validate resolves the principal behind a bearer token.
// The revocation set is consulted before the signature; the role is read fresh from the store.
func (s *AuthService) Validate(ctx context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	// 1. Revocation set
	revoked, err := s.revoked.Contains(ctx, password.HashToken(token))
	if err != nil {
		return domain.Principal{}, storeUnavailable(err)
	}
	if revoked {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	// 2. Signature, then expiry
	claims, err := jwt.ValidateAccessToken(token, s.jwtCfg.Secret, s.now())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ErrTokenExpired
		}
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	if claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	// 3. Fresh identity and role
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.ErrTokenInvalid
		}
		return domain.Principal{}, err
	}
	if !user.Active {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	return domain.PrincipalFromUser(user), nil
}

// Revoke adds token to the revocation set until it would have expired.
// Revoking an already expired token is a no-op.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	claims, err := jwt.VerifySignature(strings.TrimSpace(token), s.jwtCfg.Secret)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	expiresAt := claims.ExpiresAt.Time
	if !s.now().Before(expiresAt) {
		return nil
	}

	if err := s.revoked.Add(ctx, password.HashToken(strings.TrimSpace(token)), expiresAt); err != nil {
		return storeUnavailable(err)
	}

	metrics.RecordRevocation()
	s.log.Info("Token revoked", zap.Uint("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

// Register creates an active SALES_REP account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*domain.User, error) {
	// 1. Validate input
	verr := domain.NewValidationError()
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if firstName == "" {
		verr.Add("firstName", "is required")
	}
	if lastName == "" {
		verr.Add("lastName", "is required")
	}
	switch {
	case email == "":
		verr.Add("email", "is required")
	case !domain.IsEmail(email):
		verr.Add("email", "must be a valid email address")
	}
	if !password.ValidatePassword(input.Password) {
		verr.Add("password", "must be at least 8 characters and contain a letter")
	}
	if input.Password != input.ConfirmPassword {
		verr.Add("confirmPassword", "does not match password")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	// 2. Check if email already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateEntry
	}

	// 3. Hash password
	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Create user
	user := &domain.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hashed,
		Role:         domain.RoleSalesRep,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// CurrentUser returns the profile of the authenticated principal
func (s *AuthService) CurrentUser(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, p.ID)
}

func storeUnavailable(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
