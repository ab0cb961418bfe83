package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
)

// ThrottledError is returned by Check when the scope has used up its attempts
type ThrottledError struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many login attempts (%d), retry after %s", e.Attempts, e.RetryAfter)
}

// IsThrottled reports whether err is a ThrottledError and returns it
func IsThrottled(err error) (*ThrottledError, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled, true
	}
	return nil, false
}

// Config holds the throttle limits
type Config struct {
	MaxAttempts int           // failed attempts allowed per window
	Window      time.Duration // sliding window length
	Retention   time.Duration // how long attempt rows are kept
}

// DefaultConfig returns five attempts per fifteen minutes
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Retention:   24 * time.Hour,
	}
}

// LoginThrottle limits failed logins per email using a sliding window
// stored in the login_attempts table.
type LoginThrottle struct {
	db     *sql.DB
	logger *zap.Logger
	config Config
	now    func() time.Time
}

// NewLoginThrottle creates a new LoginThrottle instance
func NewLoginThrottle(db *sql.DB, logger *zap.Logger, config Config) *LoginThrottle {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.Retention < config.Window {
		config.Retention = defaults.Retention
		if config.Retention < config.Window {
			config.Retention = config.Window
		}
	}

	return &LoginThrottle{
		db:     db,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Check returns a *ThrottledError when the email has reached MaxAttempts
// failures inside the window.
func (t *LoginThrottle) Check(ctx context.Context, email, ipAddress string) error {
	scopeKey := buildScopeKey(email)
	now := t.now().UTC()

	query := `
		SELECT COUNT(*), MIN(attempted_at)
		FROM login_attempts
		WHERE scope_key = $1
		  AND attempted_at >= $2
	`

	var (
		count  int
		oldest sql.NullTime
	)
	if err := t.db.QueryRowContext(ctx, query, scopeKey, now.Add(-t.config.Window)).Scan(&count, &oldest); err != nil {
		return fmt.Errorf("failed to query login attempts: %w", err)
	}

	if count < t.config.MaxAttempts {
		return nil
	}

	retryAfter := time.Second
	if oldest.Valid {
		if d := oldest.Time.Add(t.config.Window).Sub(now); d > retryAfter {
			retryAfter = d.Round(time.Second)
		}
	}

	t.logger.Warn("login throttled",
		zap.String("scope_key", scopeKey),
		zap.String("ip_address", ipAddress),
		zap.Int("attempts", count),
		zap.Duration("retry_after", retryAfter))

	return &ThrottledError{Attempts: count, RetryAfter: retryAfter}
}

// RecordFailure stores a failed attempt for the email
func (t *LoginThrottle) RecordFailure(ctx context.Context, email, ipAddress string) error {
	query := `
		INSERT INTO login_attempts (scope_key, ip_address, attempted_at)
		VALUES ($1, $2, $3)
	`

	if _, err := t.db.ExecContext(ctx, query, buildScopeKey(email), nullableString(ipAddress), t.now().UTC()); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Reset clears the failures recorded for the email, typically after a
// successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	query := `DELETE FROM login_attempts WHERE scope_key = $1`

	if _, err := t.db.ExecContext(ctx, query, buildScopeKey(email)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// CleanupOld removes attempts older than the retention period
func (t *LoginThrottle) CleanupOld(ctx context.Context) (int64, error) {
	cutoffTime := t.now().UTC().Add(-t.config.Retention)

	query := `
		DELETE FROM login_attempts
		WHERE attempted_at < $1
	`

	result, err := t.db.ExecContext(ctx, query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	t.logger.Info("cleaned up old login attempts",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff_time", cutoffTime))

	return rowsAffected, nil
}

// StartCleanupWorker periodically prunes old attempts until ctx is done
func (t *LoginThrottle) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Info("started login throttle cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", t.config.Retention))

	for {
		select {
		case <-ticker.C:
			if _, err := t.CleanupOld(ctx); err != nil {
				t.logger.Error("failed to cleanup login attempts", zap.Error(err))
			}
		case <-ctx.Done():
			t.logger.Info("stopping login throttle cleanup worker")
			return
		}
	}
}

// Config returns the effective limits
func (t *LoginThrottle) Config() Config {
	return t.config
}

func buildScopeKey(email string) string {
	return "login:email:" + models.NormalizeEmail(email)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
