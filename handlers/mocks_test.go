package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/services"
)

// MockAuthAPI is a mock implementation of AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Signup(ctx context.Context, input services.SignupInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthAPI) Login(ctx context.Context, input services.LoginInput) (*services.TokenResponse, error) {
	args := m.Called(ctx, input)
	if token := args.Get(0); token != nil {
		return token.(*services.TokenResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPatientAPI is a mock implementation of PatientAPI
type MockPatientAPI struct {
	mock.Mock
}

func (m *MockPatientAPI) Create(ctx context.Context, user *models.User, input services.CreatePatientInput) (*models.Patient, error) {
	args := m.Called(ctx, user, input)
	if patient := args.Get(0); patient != nil {
		return patient.(*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientAPI) Update(ctx context.Context, patient *models.Patient, update models.PatientUpdate) (*models.Patient, error) {
	args := m.Called(ctx, patient, update)
	if updated := args.Get(0); updated != nil {
		return updated.(*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPatientAPI) Delete(ctx context.Context, patient *models.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *MockPatientAPI) List(ctx context.Context, skip, limit int) ([]*models.Patient, error) {
	args := m.Called(ctx, skip, limit)
	if patients := args.Get(0); patients != nil {
		return patients.([]*models.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditTrailAPI is a mock implementation of AuditTrailAPI
type MockAuditTrailAPI struct {
	mock.Mock
}

func (m *MockAuditTrailAPI) ListForUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, userID, skip, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}
