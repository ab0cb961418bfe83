package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/upb/patient-service/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// UserKey is the context key for the authenticated user
	UserKey contextKey = "user"

	// PatientKey is the context key for the caller's patient profile
	PatientKey contextKey = "patient"
)

// GetRequestIDFromContext retrieves the request ID from context. IDs set by
// chi's RequestID middleware are returned when none was set explicitly.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetUserFromContext retrieves the authenticated user from context
func GetUserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetPatientFromContext retrieves the caller's patient profile from context
func GetPatientFromContext(ctx context.Context) *models.Patient {
	if patient, ok := ctx.Value(PatientKey).(*models.Patient); ok {
		return patient
	}
	return nil
}

// WithPatient adds the caller's patient profile to the context
func WithPatient(ctx context.Context, patient *models.Patient) context.Context {
	return context.WithValue(ctx, PatientKey, patient)
}
