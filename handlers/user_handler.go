package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/middleware"
	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/utils"
)

// AuditTrailAPI reads a user's own audit entries
type AuditTrailAPI interface {
	ListForUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*models.AuditLog, error)
}

// UserHandler serves the /users/me routes
type UserHandler struct {
	audits AuditTrailAPI
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(audits AuditTrailAPI, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		audits: audits,
		logger: logger,
	}
}

// HandleGetMe handles GET /users/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := utils.WriteOK(w, newUserResponse(user)); err != nil {
		h.logger.Error("failed to write user response", zap.Error(err))
	}
}

// HandleListAuditLogs handles GET /users/me/audit-logs?skip=&limit=
func (h *UserHandler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	skip, limit, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	logs, err := h.audits.ListForUser(r.Context(), user.ID, skip, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, logs); err != nil {
		h.logger.Error("failed to write audit log response", zap.Error(err))
	}
}
