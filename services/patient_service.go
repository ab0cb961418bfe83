package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
)

const (
	// DefaultPatientListLimit is used when a list request gives no limit
	DefaultPatientListLimit = 100
	// MaxPatientListLimit caps the page size of a list request
	MaxPatientListLimit = 1000
)

// PatientAuditor records patient profile changes
type PatientAuditor interface {
	LogPatientCreated(ctx context.Context, patient *models.Patient) error
	LogPatientUpdated(ctx context.Context, patient *models.Patient, changed []string) error
	LogPatientDeleted(ctx context.Context, patient *models.Patient) error
}

// CreatePatientInput holds the fields of a new patient profile
type CreatePatientInput struct {
	Name          string
	Age           int
	DOB           models.Date
	Gender        string
	ContactNumber string
	Email         string
	Address       *string
}

// PatientService manages the patient profile owned by each user
type PatientService struct {
	txManager repositories.TransactionManager
	patients  repositories.PatientRepository
	auditor   PatientAuditor
	logger    *zap.Logger
}

// NewPatientService creates a new PatientService instance
func NewPatientService(txManager repositories.TransactionManager, patients repositories.PatientRepository, auditor PatientAuditor, logger *zap.Logger) *PatientService {
	return &PatientService{
		txManager: txManager,
		patients:  patients,
		auditor:   auditor,
		logger:    logger,
	}
}

// Create creates the profile for user. A user owns at most one profile and
// the email and contact number are unique across patients.
func (s *PatientService) Create(ctx context.Context, user *models.User, input CreatePatientInput) (*models.Patient, error) {
	patient, err := WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.Patient, error) {
		patients := s.patients.WithTx(tx)

		if _, err := patients.GetByUserID(ctx, user.ID); err == nil {
			return nil, ErrPatientExists
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, WrapInternal("failed to look up patient profile", err)
		}

		patient := models.NewPatient(user.ID, input.Name, input.Age, input.DOB, input.Gender, input.ContactNumber, input.Email, input.Address)

		if err := s.ensureContactAvailable(ctx, patients, patient); err != nil {
			return nil, err
		}

		if err := patients.Create(ctx, patient); err != nil {
			return nil, translateWriteError(err, "failed to create patient profile")
		}
		return patient, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created patient profile",
		zap.String("patient_id", patient.ID.String()),
		zap.String("user_id", user.ID.String()))
	if err := s.auditor.LogPatientCreated(ctx, patient); err != nil {
		s.logger.Warn("failed to audit patient creation", zap.Error(err))
	}

	return patient, nil
}

// GetForUser returns the profile owned by user
func (s *PatientService) GetForUser(ctx context.Context, user *models.User) (*models.Patient, error) {
	patient, err := s.patients.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPatientNotCreated
		}
		return nil, WrapInternal("failed to load patient profile", err)
	}
	return patient, nil
}

// Update applies a partial update to patient. Only provided fields change.
func (s *PatientService) Update(ctx context.Context, patient *models.Patient, update models.PatientUpdate) (*models.Patient, error) {
	if update.IsEmpty() {
		return patient, nil
	}

	updated := *patient
	changed := update.ApplyTo(&updated)
	if len(changed) == 0 {
		return patient, nil
	}

	err := WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		patients := s.patients.WithTx(tx)

		if err := s.ensureContactAvailable(ctx, patients, &updated); err != nil {
			return err
		}

		if err := patients.Update(ctx, &updated); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrPatientNotCreated
			}
			return translateWriteError(err, "failed to update patient profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("updated patient profile",
		zap.String("patient_id", updated.ID.String()),
		zap.Strings("changed_fields", changed))
	if err := s.auditor.LogPatientUpdated(ctx, &updated, changed); err != nil {
		s.logger.Warn("failed to audit patient update", zap.Error(err))
	}

	return &updated, nil
}

// Delete removes patient. The owning user is kept.
func (s *PatientService) Delete(ctx context.Context, patient *models.Patient) error {
	if err := s.patients.Delete(ctx, patient.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPatientNotCreated
		}
		return WrapInternal("failed to delete patient profile", err)
	}

	s.logger.Info("deleted patient profile", zap.String("patient_id", patient.ID.String()))
	if err := s.auditor.LogPatientDeleted(ctx, patient); err != nil {
		s.logger.Warn("failed to audit patient deletion", zap.Error(err))
	}

	return nil
}

// List returns a page of patients. A non-positive limit means the default and
// the limit is capped at MaxPatientListLimit.
func (s *PatientService) List(ctx context.Context, skip, limit int) ([]*models.Patient, error) {
	skip, limit = clampPage(skip, limit, DefaultPatientListLimit, MaxPatientListLimit)

	patients, err := s.patients.List(ctx, limit, skip)
	if err != nil {
		return nil, WrapInternal("failed to list patients", err)
	}
	return patients, nil
}

func (s *PatientService) ensureContactAvailable(ctx context.Context, patients repositories.PatientRepository, patient *models.Patient) error {
	taken, err := patients.ExistsByEmailOrContact(ctx, patient.Email, patient.ContactNumber, patient.ID)
	if err != nil {
		return WrapInternal("failed to check patient uniqueness", err)
	}
	if taken {
		return ErrPatientContactInUse
	}
	return nil
}

func translateWriteError(err error, message string) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return ErrPatientContactInUse
	}
	return WrapInternal(message, err)
}
