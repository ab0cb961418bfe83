package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/auth"
	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
	"github.com/upb/patient-service/security"
	"github.com/upb/patient-service/services/audit"
	"github.com/upb/patient-service/services/ratelimit"
)

// Authenticator resolves a credential to a user. A nil user with a nil error
// means the credential was rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, cred auth.Credential) (*models.User, error)
	DefaultKind() auth.Kind
}

// LoginThrottler limits repeated failed logins
type LoginThrottler interface {
	Check(ctx context.Context, email, ipAddress string) error
	RecordFailure(ctx context.Context, email, ipAddress string) error
	Reset(ctx context.Context, email string) error
}

// AuthAuditor records authentication events
type AuthAuditor interface {
	LogUserSignedUp(ctx context.Context, user *models.User) error
	LogLoginSucceeded(ctx context.Context, user *models.User, backend string) error
	LogLoginFailed(ctx context.Context, email string) error
	LogLoginThrottled(ctx context.Context, email string) error
}

// SignupInput holds the data needed to register an account
type SignupInput struct {
	Email    string
	Password string
}

// LoginInput holds the credentials presented at login
type LoginInput struct {
	Email    string
	Password string
}

// TokenResponse is the OAuth2 style token returned after login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthService handles signup, login and bearer token resolution
type AuthService struct {
	users         repositories.UserRepository
	authenticator Authenticator
	tokens        *security.TokenService
	verifier      *security.Verifier
	throttle      LoginThrottler
	auditor       AuthAuditor
	logger        *zap.Logger
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	users repositories.UserRepository,
	authenticator Authenticator,
	tokens *security.TokenService,
	verifier *security.Verifier,
	throttle LoginThrottler,
	auditor AuthAuditor,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		authenticator: authenticator,
		tokens:        tokens,
		verifier:      verifier,
		throttle:      throttle,
		auditor:       auditor,
		logger:        logger,
	}
}

// Signup registers a new account with a hashed password
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	email := models.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, newFrom(ErrInvalidInput, nil).WithDetail("fields", []string{"email", "password"})
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrEmailRegistered
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, WrapInternal("failed to look up user", err)
	}

	hashed, err := s.verifier.Hash(input.Password)
	if err != nil {
		return nil, WrapError(ErrorTypeValidation, "password cannot be hashed", err)
	}

	user := models.NewUser(email, hashed)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailRegistered
		}
		return nil, WrapInternal("failed to create user", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	if err := s.auditor.LogUserSignedUp(ctx, user); err != nil {
		s.logger.Warn("failed to audit signup", zap.Error(err))
	}

	return user, nil
}

// Login checks the throttle, authenticates through the configured backend and
// issues an access token whose subject is the user id.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResponse, error) {
	email := models.NormalizeEmail(input.Email)
	ipAddress := audit.RequestMetaFrom(ctx).IPAddress

	if err := s.throttle.Check(ctx, email, ipAddress); err != nil {
		if throttled, ok := ratelimit.IsThrottled(err); ok {
			if auditErr := s.auditor.LogLoginThrottled(ctx, email); auditErr != nil {
				s.logger.Warn("failed to audit throttled login", zap.Error(auditErr))
			}
			return nil, newFrom(ErrTooManyLoginAttempts, err).
				WithDetail("retry_after_seconds", int(throttled.RetryAfter.Seconds()))
		}
		return nil, WrapInternal("failed to check login throttle", err)
	}

	user, err := s.authenticator.Authenticate(ctx, auth.Credential{Email: email, Password: input.Password})
	if err != nil {
		if errors.Is(err, auth.ErrNotSupported) {
			return nil, newFrom(ErrBackendNotSupported, err).
				WithDetail("backend", string(s.authenticator.DefaultKind()))
		}
		return nil, WrapInternal("failed to authenticate", err)
	}

	if user == nil {
		if err := s.throttle.RecordFailure(ctx, email, ipAddress); err != nil {
			s.logger.Error("failed to record login failure", zap.Error(err))
		}
		if err := s.auditor.LogLoginFailed(ctx, email); err != nil {
			s.logger.Warn("failed to audit login failure", zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset login throttle", zap.Error(err))
	}

	ttl := s.tokens.DefaultTTL()
	token, err := s.tokens.Issue(security.Claims{"sub": user.ID}, ttl)
	if err != nil {
		return nil, WrapInternal("failed to issue token", err)
	}

	if err := s.auditor.LogLoginSucceeded(ctx, user, string(s.authenticator.DefaultKind())); err != nil {
		s.logger.Warn("failed to audit login", zap.Error(err))
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}, nil
}

// ResolveToken validates a bearer token and loads the active user it names.
// Every failure is reported as ErrUnauthorized.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			s.logger.Debug("rejected expired token")
		} else {
			s.logger.Warn("rejected invalid token")
		}
		return nil, ErrUnauthorized
	}

	sub, ok := claims.Subject()
	if !ok {
		s.logger.Warn("token has no subject")
		return nil, ErrUnauthorized
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		s.logger.Warn("token subject is not a user id")
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("failed to load token subject", zap.String("user_id", sub), zap.Error(err))
		}
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}

	return user, nil
}
