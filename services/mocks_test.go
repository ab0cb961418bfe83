package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/upb/patient-service/auth"
	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	args := m.Called(ctx, id, hashedPassword)
	return args.Error(0)
}

func (m *MockUserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

// MockPatientRepository is a mock implementation of PatientRepository
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	args := m.Called(ctx, id)
	if patient := args.Get(0); patient != nil {
		return patient.(*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Patient, error) {
	args := m.Called(ctx, userID)
	if patient := args.Get(0); patient != nil {
		return patient.(*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientRepository) List(ctx context.Context, limit, offset int) ([]*models.Patient, error) {
	args := m.Called(ctx, limit, offset)
	if patients := args.Get(0); patients != nil {
		return patients.([]*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPatientRepository) ExistsByEmailOrContact(ctx context.Context, email, contactNumber string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, contactNumber, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPatientRepository) WithTx(tx repositories.Transaction) repositories.PatientRepository {
	return m
}

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, cred auth.Credential) (*models.User, error) {
	args := m.Called(ctx, cred)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) DefaultKind() auth.Kind {
	return auth.KindDatabase
}

// MockLoginThrottler is a mock implementation of LoginThrottler
type MockLoginThrottler struct {
	mock.Mock
}

func (m *MockLoginThrottler) Check(ctx context.Context, email, ipAddress string) error {
	args := m.Called(ctx, email, ipAddress)
	return args.Error(0)
}

func (m *MockLoginThrottler) RecordFailure(ctx context.Context, email, ipAddress string) error {
	args := m.Called(ctx, email, ipAddress)
	return args.Error(0)
}

func (m *MockLoginThrottler) Reset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockAuditor implements the auth, rehash and patient auditor interfaces
type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogUserSignedUp(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockAuditor) LogLoginSucceeded(ctx context.Context, user *models.User, backend string) error {
	return m.Called(ctx, user, backend).Error(0)
}

func (m *MockAuditor) LogLoginFailed(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuditor) LogLoginThrottled(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuditor) LogPasswordRehashed(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuditor) LogPatientCreated(ctx context.Context, patient *models.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *MockAuditor) LogPatientUpdated(ctx context.Context, patient *models.Patient, changed []string) error {
	return m.Called(ctx, patient, changed).Error(0)
}

func (m *MockAuditor) LogPatientDeleted(ctx context.Context, patient *models.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAuditRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, userID, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}
