package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
)

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.AuditLog
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	m.mu.Lock()
	m.insertedLogs = append(m.insertedLogs, log)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockAuditRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, userID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetInsertedLogs() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

func (m *MockAuditRepository) countInserted() int {
	return len(m.GetInsertedLogs())
}

func newStartedService(t *testing.T, repo *MockAuditRepository, config Config) *AuditService {
	t.Helper()
	service := NewAuditService(repo, zap.NewNop(), config)
	require.NoError(t, service.Start())
	return service
}

func TestAuditService_StartStop(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	err := service.Start()
	require.NoError(t, err)

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	// Cannot start again
	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))

	// Cannot stop twice, and events are refused afterwards
	assert.Error(t, service.Stop(time.Second))
	assert.Error(t, service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")}))
	assert.False(t, service.GetStats().Started)
}

func TestAuditService_LogEventBeforeStart(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), DefaultConfig())
	err := service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")})
	assert.Error(t, err)
}

func TestAuditService_LogEvent(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, Config{BufferSize: 100, WorkerCount: 2})
	defer service.Stop(5 * time.Second)

	log := models.NewAuditLog(models.AuditActionLoginFailed, "user")
	require.NoError(t, service.LogEvent(&AuditEvent{Log: log}))

	require.Eventually(t, func() bool { return mockRepo.countInserted() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, models.AuditActionLoginFailed, mockRepo.GetInsertedLogs()[0].Action)
}

func TestAuditService_LogEventBlocking(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, Config{BufferSize: 100, WorkerCount: 2})
	defer service.Stop(5 * time.Second)

	log := models.NewAuditLog(models.AuditActionPatientCreated, "patient")
	require.NoError(t, service.LogEventBlocking(context.Background(), &AuditEvent{Log: log}))

	require.Eventually(t, func() bool { return mockRepo.countInserted() == 1 }, time.Second, 10*time.Millisecond)
}

func TestAuditService_StopDrainsQueue(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, Config{BufferSize: 100, WorkerCount: 3})

	eventCount := 50
	for i := 0; i < eventCount; i++ {
		require.NoError(t, service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginSucceeded, "user")}))
	}

	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, eventCount, mockRepo.countInserted())
}

func TestAuditService_ConcurrentLogging(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, Config{BufferSize: 1000, WorkerCount: 5})

	goroutineCount := 10
	eventsPerGoroutine := 10
	var wg sync.WaitGroup

	for i := 0; i < goroutineCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				_ = service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")})
			}
		}()
	}

	wg.Wait()
	require.NoError(t, service.Stop(5*time.Second))
	assert.Equal(t, goroutineCount*eventsPerGoroutine, mockRepo.countInserted())
}

func TestAuditService_StopWhileLogging(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, Config{BufferSize: 10, WorkerCount: 1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")})
			}
		}()
	}

	assert.NoError(t, service.Stop(5*time.Second))
	wg.Wait()
}

func TestAuditService_TypedHelpers(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := newStartedService(t, mockRepo, DefaultConfig())

	user := models.NewUser("jane@example.com", "hash")
	patient := models.NewPatient(user.ID, "Jane", 34, models.NewDate(1990, time.May, 17), "female", "+15550100", "jane@example.com", nil)
	ctx := WithRequestMeta(context.Background(), models.RequestMeta{RequestID: "req-1", IPAddress: "10.0.0.1", UserAgent: "curl"})

	require.NoError(t, service.LogUserSignedUp(ctx, user))
	require.NoError(t, service.LogLoginSucceeded(ctx, user, "database"))
	require.NoError(t, service.LogLoginFailed(ctx, "ghost@example.com"))
	require.NoError(t, service.LogLoginThrottled(ctx, "ghost@example.com"))
	require.NoError(t, service.LogPasswordRehashed(ctx, user.ID))
	require.NoError(t, service.LogPatientCreated(ctx, patient))
	require.NoError(t, service.LogPatientUpdated(ctx, patient, []string{"name"}))
	require.NoError(t, service.LogPatientDeleted(ctx, patient))

	require.NoError(t, service.Stop(5*time.Second))

	byAction := make(map[models.AuditAction]*models.AuditLog)
	for _, log := range mockRepo.GetInsertedLogs() {
		byAction[log.Action] = log
		assert.Equal(t, "req-1", log.RequestID)
		assert.Equal(t, "10.0.0.1", log.IPAddress)
	}
	require.Len(t, byAction, 8)

	assert.Nil(t, byAction[models.AuditActionLoginFailed].UserID)
	assert.JSONEq(t, `{"email":"ghost@example.com"}`, string(byAction[models.AuditActionLoginFailed].Details))
	assert.JSONEq(t, `{"backend":"database"}`, string(byAction[models.AuditActionLoginSucceeded].Details))
	assert.Equal(t, &patient.ID, byAction[models.AuditActionPatientCreated].ResourceID)
	assert.Equal(t, "patient", byAction[models.AuditActionPatientDeleted].ResourceType)
	assert.JSONEq(t, `{"changed_fields":["name"]}`, string(byAction[models.AuditActionPatientUpdated].Details))
}

func TestAuditService_BufferFull(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	release := make(chan struct{})
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		<-release
	})
	service := newStartedService(t, mockRepo, Config{BufferSize: 5, WorkerCount: 1})

	successCount := 0
	for i := 0; i < 20; i++ {
		if err := service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")}); err == nil {
			successCount++
		}
	}

	assert.Less(t, successCount, 20)
	assert.Positive(t, service.GetStats().DroppedEvents)

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
}

func TestAuditService_StopTimeout(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	release := make(chan struct{})
	defer close(release)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		<-release
	})
	service := newStartedService(t, mockRepo, Config{BufferSize: 100, WorkerCount: 1})

	require.NoError(t, service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")}))

	err := service.Stop(100 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestAuditService_GetStats(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	release := make(chan struct{})
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		<-release
	})
	service := NewAuditService(mockRepo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 1})

	stats := service.GetStats()
	assert.False(t, stats.Started)
	assert.Equal(t, 1, stats.WorkerCount)
	assert.Equal(t, 100, stats.BufferSize)
	assert.Equal(t, 0, stats.PendingEvents)

	require.NoError(t, service.Start())
	assert.True(t, service.GetStats().Started)

	for i := 0; i < 10; i++ {
		_ = service.LogEvent(&AuditEvent{Log: models.NewAuditLog(models.AuditActionLoginFailed, "user")})
	}
	assert.Greater(t, service.GetStats().PendingEvents, 0)

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
}

func TestNewAuditService_Defaults(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 1000, config.BufferSize)
	assert.Equal(t, 2, config.WorkerCount)

	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), Config{})
	stats := service.GetStats()
	assert.Equal(t, 1000, stats.BufferSize)
	assert.Equal(t, 2, stats.WorkerCount)
}

func TestRequestMetaFrom(t *testing.T) {
	assert.Equal(t, models.RequestMeta{}, RequestMetaFrom(context.Background()))

	meta := models.RequestMeta{RequestID: "abc"}
	assert.Equal(t, meta, RequestMetaFrom(WithRequestMeta(context.Background(), meta)))
}
