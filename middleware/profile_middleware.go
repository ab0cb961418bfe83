package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/services"
	"github.com/upb/patient-service/utils"
)

// PatientLoader loads the patient profile owned by a user
type PatientLoader interface {
	GetForUser(ctx context.Context, user *models.User) (*models.Patient, error)
}

// ProfileMiddleware resolves the caller's patient profile
type ProfileMiddleware struct {
	loader PatientLoader
	logger *zap.Logger
}

// NewProfileMiddleware creates a new ProfileMiddleware
func NewProfileMiddleware(loader PatientLoader, logger *zap.Logger) *ProfileMiddleware {
	return &ProfileMiddleware{
		loader: loader,
		logger: logger,
	}
}

// RequirePatient must run after RequireAuth. It answers 409 when the user has
// not created a profile yet.
func (m *ProfileMiddleware) RequirePatient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		user := GetUserFromContext(ctx)
		if user == nil {
			m.logger.Error("user not found in context", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Not authenticated")
			return
		}

		patient, err := m.loader.GetForUser(ctx, user)
		if err != nil {
			var domainErr *services.DomainError
			if errors.As(err, &domainErr) && domainErr.Type == services.ErrorTypeConflict {
				_ = utils.WriteConflict(w, domainErr.Message, nil)
				return
			}
			m.logger.Error("failed to load patient profile",
				zap.String("request_id", requestID),
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPatient(ctx, patient)))
	})
}
