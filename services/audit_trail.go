package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
	"github.com/upb/patient-service/repositories"
)

const (
	DefaultAuditListLimit = 50
	MaxAuditListLimit     = 200
)

// AuditTrailService reads back the audit entries a user produced
type AuditTrailService struct {
	audits repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditTrailService creates a new AuditTrailService instance
func NewAuditTrailService(audits repositories.AuditRepository, logger *zap.Logger) *AuditTrailService {
	return &AuditTrailService{
		audits: audits,
		logger: logger,
	}
}

// ListForUser returns the newest entries recorded for userID first
func (s *AuditTrailService) ListForUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*models.AuditLog, error) {
	skip, limit = clampPage(skip, limit, DefaultAuditListLimit, MaxAuditListLimit)

	logs, err := s.audits.GetByUserID(ctx, userID, limit, skip)
	if err != nil {
		s.logger.Error("failed to list audit logs", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, WrapInternal("failed to list audit logs", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}

func clampPage(skip, limit, defaultLimit, maxLimit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}
