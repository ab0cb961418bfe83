package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
)

const patientColumns = `id, user_id, name, age, dob, gender, contact_number, email, address, created_at, updated_at`

// PatientRepository implements the repositories.PatientRepository interface
type PatientRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *DB, logger *zap.Logger) repositories.PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new patient
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(ctx, r.db, r.tx).ExecContext(ctx, query,
		patient.ID,
		patient.UserID,
		patient.Name,
		patient.Age,
		patient.DOB,
		patient.Gender,
		patient.ContactNumber,
		patient.Email,
		patient.Address,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("failed to create patient", err)
	}

	r.logger.Debug("patient created",
		zap.String("id", patient.ID.String()),
		zap.String("user_id", patient.UserID.String()))
	return nil
}

// GetByID retrieves a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	patient, err := scanPatient(conn(ctx, r.db, r.tx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapReadError(fmt.Sprintf("failed to get patient %s", id), err)
	}
	return patient, nil
}

// GetByUserID retrieves the patient owned by a user
func (r *PatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE user_id = $1`

	patient, err := scanPatient(conn(ctx, r.db, r.tx).QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrapReadError(fmt.Sprintf("failed to get patient for user %s", userID), err)
	}
	return patient, nil
}

// List retrieves patients ordered by creation time
func (r *PatientRepository) List(ctx context.Context, limit, offset int) ([]*models.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`

	rows, err := conn(ctx, r.db, r.tx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := make([]*models.Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient rows: %w", err)
	}

	return patients, nil
}

// Update updates a patient
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	query := `
		UPDATE patients
		SET name = $2,
		    age = $3,
		    dob = $4,
		    gender = $5,
		    contact_number = $6,
		    email = $7,
		    address = $8,
		    updated_at = $9
		WHERE id = $1
	`

	result, err := conn(ctx, r.db, r.tx).ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.DOB,
		patient.Gender,
		patient.ContactNumber,
		patient.Email,
		patient.Address,
		patient.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("failed to update patient", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", patient.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("patient updated", zap.String("id", patient.ID.String()))
	return nil
}

// Delete deletes a patient
func (r *PatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM patients WHERE id = $1`

	result, err := conn(ctx, r.db, r.tx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("patient %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("patient deleted", zap.String("id", id.String()))
	return nil
}

// ExistsByEmailOrContact reports whether another patient uses the email or contact number
func (r *PatientRepository) ExistsByEmailOrContact(ctx context.Context, email, contactNumber string, excludeID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM patients
			WHERE (email = $1 OR contact_number = $2) AND id <> $3
		)
	`

	var exists bool
	if err := conn(ctx, r.db, r.tx).QueryRowContext(ctx, query, email, contactNumber, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check patient uniqueness: %w", err)
	}
	return exists, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *PatientRepository) WithTx(tx repositories.Transaction) repositories.PatientRepository {
	return &PatientRepository{
		db:     r.db,
		tx:     asTransaction(tx),
		logger: r.logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	patient := &models.Patient{}
	err := row.Scan(
		&patient.ID,
		&patient.UserID,
		&patient.Name,
		&patient.Age,
		&patient.DOB,
		&patient.Gender,
		&patient.ContactNumber,
		&patient.Email,
		&patient.Address,
		&patient.CreatedAt,
		&patient.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return patient, nil
}
