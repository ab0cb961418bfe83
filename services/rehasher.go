package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/security"
	"github.com/upb/patient-service/services/audit"
)

// PasswordStore persists a replacement password hash
type PasswordStore interface {
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
}

// RehashAuditor records password upgrades
type RehashAuditor interface {
	LogPasswordRehashed(ctx context.Context, userID uuid.UUID) error
}

// PasswordRehasher persists upgraded password hashes in the background so a
// login never waits on the write.
type PasswordRehasher struct {
	store    PasswordStore
	verifier *security.Verifier
	auditor  RehashAuditor
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewPasswordRehasher creates a new PasswordRehasher instance
func NewPasswordRehasher(store PasswordStore, verifier *security.Verifier, auditor RehashAuditor, timeout time.Duration, logger *zap.Logger) *PasswordRehasher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PasswordRehasher{
		store:    store,
		verifier: verifier,
		auditor:  auditor,
		timeout:  timeout,
		logger:   logger,
	}
}

// Rehash hashes secret with the current parameters and stores it for user.
// It returns immediately. Failures are logged and the old hash stays valid.
func (r *PasswordRehasher) Rehash(ctx context.Context, user *models.User, secret string) {
	meta := audit.RequestMetaFrom(ctx)
	userID := user.ID

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(audit.WithRequestMeta(context.Background(), meta), r.timeout)
		defer cancel()

		hashed, err := r.verifier.Hash(secret)
		if err != nil {
			r.logger.Error("failed to rehash password", zap.String("user_id", userID.String()), zap.Error(err))
			return
		}

		if err := r.store.UpdatePassword(ctx, userID, hashed); err != nil {
			r.logger.Error("failed to persist rehashed password", zap.String("user_id", userID.String()), zap.Error(err))
			return
		}

		r.logger.Info("upgraded stored password hash", zap.String("user_id", userID.String()))
		if err := r.auditor.LogPasswordRehashed(ctx, userID); err != nil {
			r.logger.Warn("failed to audit password rehash", zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight rehashes finish or ctx is done
func (r *PasswordRehasher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
