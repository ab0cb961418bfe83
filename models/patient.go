package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the domain profile owned by exactly one User.
type Patient struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	Age           int       `json:"age" db:"age"`
	DOB           Date      `json:"dob" db:"dob"`
	Gender        string    `json:"gender" db:"gender"`
	ContactNumber string    `json:"contact_number" db:"contact_number"`
	Email         string    `json:"email" db:"email"`
	Address       *string   `json:"address,omitempty" db:"address"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Patient model
func (Patient) TableName() string {
	return "patients"
}

// NewPatient creates a Patient for userID
func NewPatient(userID uuid.UUID, name string, age int, dob Date, gender, contactNumber, email string, address *string) *Patient {
	now := time.Now().UTC()
	return &Patient{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          name,
		Age:           age,
		DOB:           dob,
		Gender:        gender,
		ContactNumber: contactNumber,
		Email:         NormalizeEmail(email),
		Address:       address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// PatientUpdate carries a partial update. Nil fields are left untouched.
type PatientUpdate struct {
	Name          *string
	Age           *int
	DOB           *Date
	Gender        *string
	ContactNumber *string
	Email         *string
	Address       *string
}

// IsEmpty reports whether the update changes nothing
func (u PatientUpdate) IsEmpty() bool {
	return u.Name == nil && u.Age == nil && u.DOB == nil && u.Gender == nil &&
		u.ContactNumber == nil && u.Email == nil && u.Address == nil
}

// ApplyTo copies the provided fields onto p and returns the names of the
// fields that changed.
func (u PatientUpdate) ApplyTo(p *Patient) []string {
	var changed []string
	if u.Name != nil && *u.Name != p.Name {
		p.Name = *u.Name
		changed = append(changed, "name")
	}
	if u.Age != nil && *u.Age != p.Age {
		p.Age = *u.Age
		changed = append(changed, "age")
	}
	if u.DOB != nil && !u.DOB.Equal(p.DOB.Time) {
		p.DOB = *u.DOB
		changed = append(changed, "dob")
	}
	if u.Gender != nil && *u.Gender != p.Gender {
		p.Gender = *u.Gender
		changed = append(changed, "gender")
	}
	if u.ContactNumber != nil && *u.ContactNumber != p.ContactNumber {
		p.ContactNumber = *u.ContactNumber
		changed = append(changed, "contact_number")
	}
	if u.Email != nil {
		if email := NormalizeEmail(*u.Email); email != p.Email {
			p.Email = email
			changed = append(changed, "email")
		}
	}
	if u.Address != nil && (p.Address == nil || *u.Address != *p.Address) {
		address := *u.Address
		p.Address = &address
		changed = append(changed, "address")
	}
	if len(changed) > 0 {
		p.UpdatedAt = time.Now().UTC()
	}
	return changed
}
