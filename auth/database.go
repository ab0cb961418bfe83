package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
	"github.com/upb/patient-service/security"
)

// IdentityFinder looks up a user by normalized email. It returns
// repositories.ErrNotFound when no such user exists.
type IdentityFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RehashHook receives a user whose stored secret should be re-encoded,
// together with the plaintext that just verified.
type RehashHook func(ctx context.Context, user *models.User, secret string)

// DatabaseBackend authenticates against users stored in the database.
type DatabaseBackend struct {
	users    IdentityFinder
	verifier *security.Verifier
	legacy   security.LegacyCheck
	onRehash RehashHook
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// DatabaseOption configures a DatabaseBackend.
type DatabaseOption func(*DatabaseBackend)

// WithLegacyCheck accepts stored secrets in a deprecated encoding.
func WithLegacyCheck(check security.LegacyCheck) DatabaseOption {
	return func(b *DatabaseBackend) {
		b.legacy = check
	}
}

// WithRehashHook registers the callback run when a stored secret is stale.
func WithRehashHook(hook RehashHook) DatabaseOption {
	return func(b *DatabaseBackend) {
		b.onRehash = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) DatabaseOption {
	return func(b *DatabaseBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewDatabaseBackend creates a DatabaseBackend.
func NewDatabaseBackend(users IdentityFinder, verifier *security.Verifier, opts ...DatabaseOption) *DatabaseBackend {
	b := &DatabaseBackend{
		users:    users,
		verifier: verifier,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Authenticate returns the user when the email exists, the password verifies
// and the account is active. Any other outcome is (nil, nil).
func (b *DatabaseBackend) Authenticate(ctx context.Context, cred Credential) (*models.User, error) {
	email := models.NormalizeEmail(cred.Email)
	if email == "" || cred.Password == "" {
		return nil, nil
	}

	user, err := b.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if user == nil {
		// Keep the work done for unknown emails comparable to a real check.
		b.verifier.Verify(cred.Password, b.dummy(), nil)
		b.logger.Debug("authentication rejected", zap.String("reason", "unknown_identity"))
		return nil, nil
	}

	outcome := b.verifier.Verify(cred.Password, user.HashedPassword, b.legacy)
	if !outcome.Valid {
		b.logger.Debug("authentication rejected",
			zap.String("reason", "secret_mismatch"),
			zap.String("user_id", user.ID.String()))
		return nil, nil
	}
	if !user.IsActive {
		b.logger.Debug("authentication rejected",
			zap.String("reason", "inactive"),
			zap.String("user_id", user.ID.String()))
		return nil, nil
	}

	if outcome.ShouldRehash && b.onRehash != nil {
		b.onRehash(ctx, user, cred.Password)
	}
	return user, nil
}

func (b *DatabaseBackend) dummy() string {
	b.dummyOnce.Do(func() {
		hash, err := b.verifier.Hash("timing-equalizer-not-a-password")
		if err != nil {
			b.logger.Warn("failed to build dummy hash", zap.Error(err))
			return
		}
		b.dummyHash = hash
	})
	return b.dummyHash
}
