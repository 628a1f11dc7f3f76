package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	DefaultMaxFailedLogins = 5
	DefaultLockoutDuration = 30 * time.Minute
	DefaultSessionTTL      = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// AuthResult is the identity returned by a successful authentication.
type AuthResult struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}

// Claims represents the JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// AuthOptions configures the credential verifier and session tokens.
type AuthOptions struct {
	JWTSecret       string
	Pepper          string
	SessionTTL      time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// AuthService verifies credentials and issues session tokens
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (accessToken string, result *AuthResult, err error)
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type authService struct {
	users   repository.UserRepository
	opts    AuthOptions
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(users repository.UserRepository, opts AuthOptions, m *metrics.Metrics, logger *zap.Logger) AuthService {
	if opts.MaxFailedLogins <= 0 {
		opts.MaxFailedLogins = DefaultMaxFailedLogins
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = DefaultLockoutDuration
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &authService{
		users:   users,
		opts:    opts,
		metrics: m,
		logger:  logger.Named("auth"),
		now:     time.Now,
	}
}

// Authenticate checks email and password against the stored credential record.
// Unknown email, active lockout and wrong password all return domain.ErrInvalidCredentials.
// Every attempt that reaches a record updates its failed-login state.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.LoginAttempt(metrics.LoginRejected)
		return nil, domain.ErrMissingInput
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.LoginAttempt(metrics.LoginFailure)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		s.metrics.LoginAttempt(metrics.LoginLocked)
		return nil, domain.ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, password, s.opts.Pepper); err != nil {
		if err := s.recordFailure(ctx, user, now); err != nil {
			return nil, err
		}
		s.metrics.LoginAttempt(metrics.LoginFailure)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.UpdateLoginState(ctx, user.ID, 0, nil); err != nil {
		return nil, fmt.Errorf("failed to reset login state: %w", err)
	}
	s.metrics.LoginAttempt(metrics.LoginSuccess)

	return &AuthResult{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}

// recordFailure increments the counter, locking the account once the threshold is reached.
// The read-modify-write is not atomic; concurrent failures may under-count.
func (s *authService) recordFailure(ctx context.Context, user *domain.User, now time.Time) error {
	failed := user.FailedLogins + 1
	var lockedUntil *time.Time

	if failed >= s.opts.MaxFailedLogins {
		until := now.Add(s.opts.LockoutDuration)
		lockedUntil = &until
		failed = 0
	}

	if err := s.users.UpdateLoginState(ctx, user.ID, failed, lockedUntil); err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}

	if lockedUntil != nil {
		s.metrics.AccountLocked()
		s.logger.Warn("Account locked after repeated failed logins",
			zap.String("user_id", user.ID.String()),
			zap.Time("locked_until", *lockedUntil),
		)
	}
	return nil
}

// Login authenticates and returns a signed session token
func (s *authService) Login(ctx context.Context, email, password string) (string, *AuthResult, error) {
	result, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	accessToken, err := s.generateAccessToken(result)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, result, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.opts.JWTSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *authService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.NewNotFoundError("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *authService) generateAccessToken(result *AuthResult) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: result.ID,
		Role:   result.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.JWTSecret))
}

// HashPassword hashes password+pepper with bcrypt
func HashPassword(password, pepper string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password+pepper), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares password+pepper against a bcrypt hash in constant time
func VerifyPassword(hash, password, pepper string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+pepper))
}
