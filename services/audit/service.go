package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	// mu guards started/stopped and the close of eventChan
	mu      sync.RWMutex
	started bool
	stopped bool

	dropped atomic.Int64
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	pending := len(s.eventChan)
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
// Returns immediately, event is processed in background
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking waits until the event is queued or ctx is done
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
		DroppedEvents: s.dropped.Load(),
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	DroppedEvents int64
}

// Convenience methods for logging common events

func (s *AuditService) enqueue(ctx context.Context, log *models.AuditLog) error {
	log.WithRequest(RequestMetaFrom(ctx))
	return s.LogEvent(&AuditEvent{Log: log})
}

// LogUserSignedUp logs an account registration
func (s *AuditService) LogUserSignedUp(ctx context.Context, user *models.User) error {
	log := models.NewAuditLog(models.AuditActionUserSignedUp, "user").
		WithUser(user.ID).
		WithResource(user.ID)
	return s.enqueue(ctx, log)
}

// LogLoginSucceeded logs a successful login
func (s *AuditService) LogLoginSucceeded(ctx context.Context, user *models.User, backend string) error {
	log := models.NewAuditLog(models.AuditActionLoginSucceeded, "user").
		WithUser(user.ID).
		WithResource(user.ID).
		WithDetails(map[string]interface{}{"backend": backend})
	return s.enqueue(ctx, log)
}

// LogLoginFailed logs a rejected login. Only the attempted email is kept.
func (s *AuditService) LogLoginFailed(ctx context.Context, email string) error {
	log := models.NewAuditLog(models.AuditActionLoginFailed, "user").
		WithDetails(map[string]interface{}{"email": email})
	return s.enqueue(ctx, log)
}

// LogLoginThrottled logs a login refused by the throttle
func (s *AuditService) LogLoginThrottled(ctx context.Context, email string) error {
	log := models.NewAuditLog(models.AuditActionLoginThrottled, "user").
		WithDetails(map[string]interface{}{"email": email})
	return s.enqueue(ctx, log)
}

// LogPasswordRehashed logs a stored secret upgraded to the current scheme
func (s *AuditService) LogPasswordRehashed(ctx context.Context, userID uuid.UUID) error {
	log := models.NewAuditLog(models.AuditActionPasswordRehashed, "user").
		WithUser(userID).
		WithResource(userID)
	return s.enqueue(ctx, log)
}

// LogPatientCreated logs a patient profile creation
func (s *AuditService) LogPatientCreated(ctx context.Context, patient *models.Patient) error {
	log := models.NewAuditLog(models.AuditActionPatientCreated, "patient").
		WithUser(patient.UserID).
		WithResource(patient.ID)
	return s.enqueue(ctx, log)
}

// LogPatientUpdated logs a patient profile update with the changed fields
func (s *AuditService) LogPatientUpdated(ctx context.Context, patient *models.Patient, changed []string) error {
	log := models.NewAuditLog(models.AuditActionPatientUpdated, "patient").
		WithUser(patient.UserID).
		WithResource(patient.ID).
		WithDetails(map[string]interface{}{"changed_fields": changed})
	return s.enqueue(ctx, log)
}

// LogPatientDeleted logs a patient profile deletion
func (s *AuditService) LogPatientDeleted(ctx context.Context, patient *models.Patient) error {
	log := models.NewAuditLog(models.AuditActionPatientDeleted, "patient").
		WithUser(patient.UserID).
		WithResource(patient.ID)
	return s.enqueue(ctx, log)
}
