package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionUserSignedUp     AuditAction = "user_signed_up"
	AuditActionLoginSucceeded   AuditAction = "login_succeeded"
	AuditActionLoginFailed      AuditAction = "login_failed"
	AuditActionLoginThrottled   AuditAction = "login_throttled"
	AuditActionPasswordRehashed AuditAction = "password_rehashed"
	AuditActionPatientCreated   AuditAction = "patient_created"
	AuditActionPatientUpdated   AuditAction = "patient_updated"
	AuditActionPatientDeleted   AuditAction = "patient_deleted"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // user, patient
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now().UTC(),
	}
}

// WithUser sets the acting user
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(meta RequestMeta) *AuditLog {
	a.RequestID = meta.RequestID
	a.IPAddress = meta.IPAddress
	a.UserAgent = meta.UserAgent
	return a
}

// RequestMeta identifies the HTTP request an action originated from.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}
