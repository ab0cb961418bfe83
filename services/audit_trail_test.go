package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/patient-service/models"
)

func TestAuditTrailService_ListForUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("default page", func(t *testing.T) {
		repo := new(MockAuditRepository)
		entry := models.NewAuditLog(models.AuditActionLoginSucceeded, "user").WithUser(userID)
		repo.On("GetByUserID", ctx, userID, DefaultAuditListLimit, 0).Return([]*models.AuditLog{entry}, nil)

		logs, err := NewAuditTrailService(repo, zap.NewNop()).ListForUser(ctx, userID, -3, 0)

		require.NoError(t, err)
		assert.Len(t, logs, 1)
		repo.AssertExpectations(t)
	})

	t.Run("limit is capped", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("GetByUserID", ctx, userID, MaxAuditListLimit, 10).Return(nil, nil)

		logs, err := NewAuditTrailService(repo, zap.NewNop()).ListForUser(ctx, userID, 10, 5000)

		require.NoError(t, err)
		assert.NotNil(t, logs)
		assert.Empty(t, logs)
		repo.AssertExpectations(t)
	})

	t.Run("repository failure is internal", func(t *testing.T) {
		repo := new(MockAuditRepository)
		repo.On("GetByUserID", ctx, userID, 20, 0).Return(nil, errors.New("connection reset"))

		_, err := NewAuditTrailService(repo, zap.NewNop()).ListForUser(ctx, userID, 0, 20)

		assert.True(t, IsInternalError(err))
	})
}
