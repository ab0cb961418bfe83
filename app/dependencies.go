package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upb/patient-service/auth"
	"github.com/upb/patient-service/config"
	"github.com/upb/patient-service/handlers"
	"github.com/upb/patient-service/middleware"
	"github.com/upb/patient-service/repositories"
	"github.com/upb/patient-service/repositories/postgres"
	"github.com/upb/patient-service/security"
	"github.com/upb/patient-service/services"
	"github.com/upb/patient-service/services/audit"
	"github.com/upb/patient-service/services/ratelimit"
)

// defaultStopTimeout bounds shutdown of background workers when the caller's
// context has no deadline.
const defaultStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	Patients  repositories.PatientRepository
	AuditLogs repositories.AuditRepository
	TxManager repositories.TransactionManager

	// Security and authentication
	Verifier *security.Verifier
	Tokens   *security.TokenService
	Selector *auth.Selector

	// Background services
	Audit         *audit.AuditService
	LoginThrottle *ratelimit.LoginThrottle
	Rehasher      *services.PasswordRehasher

	// Domain services
	AuthService    *services.AuthService
	PatientService *services.PatientService
	AuditTrail     *services.AuditTrailService

	// HTTP
	AuthMiddleware    *middleware.AuthMiddleware
	ProfileMiddleware *middleware.ProfileMiddleware
	AuthHandler       *handlers.AuthHandler
	PatientHandler    *handlers.PatientHandler
	UserHandler       *handlers.UserHandler
	HealthHandler     *handlers.HealthHandler

	closeOnce sync.Once
	closeErr  error
}

// NewDependencies connects to the database, applies migrations when enabled
// and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromFactory(cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromFactory wires everything on top of an open repository
// factory. The returned Dependencies own the factory and close it in Close.
func NewDependenciesFromFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	deps.initRepositories()

	if err := deps.initSecurity(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize security: %w", err)
	}

	if err := deps.initBackgroundServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize background services: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Audit.Stop(defaultStopTimeout)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initServices()
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("auth_backend", string(deps.Selector.DefaultKind())))
	return deps, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.Patients = repos.Patients
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initSecurity(cfg *config.Config) error {
	d.Verifier = security.NewVerifier(security.WithCost(cfg.Auth.BcryptCost))

	tokens, err := security.NewTokenService(security.TokenConfig{
		SecretKey:  cfg.JWT.SecretKey,
		Algorithm:  cfg.JWT.Algorithm,
		DefaultTTL: cfg.JWT.AccessTTL,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})
	if err != nil {
		return err
	}
	d.Tokens = tokens
	return nil
}

func (d *Dependencies) initBackgroundServices(cfg *config.Config) error {
	d.Audit = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := d.Audit.Start(); err != nil {
		return err
	}

	d.LoginThrottle = ratelimit.NewLoginThrottle(d.DB.DB, d.Logger, ratelimit.Config{
		MaxAttempts: cfg.LoginThrottle.MaxAttempts,
		Window:      cfg.LoginThrottle.Window,
		Retention:   cfg.LoginThrottle.Retention,
	})

	d.Rehasher = services.NewPasswordRehasher(d.Users, d.Verifier, d.Audit, cfg.Auth.RehashTimeout, d.Logger)
	return nil
}

// initAuth builds the backend selector. The federated backend is always
// registered so it can be selected explicitly, even when it is not the default.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	kind, err := auth.ParseKind(cfg.Auth.Backend)
	if err != nil {
		return err
	}

	legacy, err := security.LegacyCheckFor(cfg.Auth.LegacyScheme)
	if err != nil {
		return err
	}

	database := auth.NewDatabaseBackend(d.Users, d.Verifier,
		auth.WithLegacyCheck(legacy),
		auth.WithRehashHook(d.Rehasher.Rehash),
		auth.WithLogger(d.Logger.Named("auth")),
	)

	selector, err := auth.NewSelector(kind, map[auth.Kind]auth.Backend{
		auth.KindDatabase:  database,
		auth.KindFederated: auth.NewFederatedBackend(),
	})
	if err != nil {
		return err
	}
	d.Selector = selector

	if kind == auth.KindFederated {
		d.Logger.Warn("federated authentication selected; logins will be rejected until it is implemented")
	}
	return nil
}

func (d *Dependencies) initServices() {
	d.AuthService = services.NewAuthService(d.Users, d.Selector, d.Tokens, d.Verifier, d.LoginThrottle, d.Audit, d.Logger)
	d.PatientService = services.NewPatientService(d.TxManager, d.Patients, d.Audit, d.Logger)
	d.AuditTrail = services.NewAuditTrailService(d.AuditLogs, d.Logger)
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, cfg.JWT.CookieName, d.Logger)
	d.ProfileMiddleware = middleware.NewProfileMiddleware(d.PatientService, d.Logger)

	d.AuthHandler = handlers.NewAuthHandler(d.AuthService, d.Logger)
	d.PatientHandler = handlers.NewPatientHandler(d.PatientService, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.AuditTrail, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Audit, d.Logger)
}

// Close gracefully shuts down all dependencies. In-flight password rehashes
// finish first, then the audit queue drains, then the database closes.
// Calling Close more than once returns the first result.
func (d *Dependencies) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closeErr = d.close(ctx)
	})
	return d.closeErr
}

func (d *Dependencies) close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Rehasher != nil {
		if err := d.Rehasher.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed waiting for password rehashes: %w", err))
		}
	}

	if d.Audit != nil {
		timeout := defaultStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 {
				timeout = remaining
			}
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		} else {
			d.Logger.Info("audit service stopped")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
