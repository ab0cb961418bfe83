package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/patient-service/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// PatientRepository handles patient profile data operations
type PatientRepository interface {
	// Create creates a new patient. Returns ErrDuplicate on a unique violation.
	Create(ctx context.Context, patient *models.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Patient, error)

	// GetByUserID retrieves the patient owned by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Patient, error)

	// List retrieves patients ordered by creation time
	List(ctx context.Context, limit, offset int) ([]*models.Patient, error)

	// Update updates a patient
	Update(ctx context.Context, patient *models.Patient) error

	// Delete deletes a patient
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByEmailOrContact reports whether another patient uses the email or
	// contact number. excludeID may be uuid.Nil.
	ExistsByEmailOrContact(ctx context.Context, email, contactNumber string, excludeID uuid.UUID) (bool, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) PatientRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByUserID retrieves audit logs for a user with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	Patients  PatientRepository
	AuditLogs AuditRepository
}
