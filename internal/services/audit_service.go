package services

import (
	"context"

	"github.com/sjperalta/lotes-api/internal/models"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// Actor identifies who triggered a mutation. UserID 0 is the system.
type Actor struct {
	UserID    uint
	IP        string
	UserAgent string
}

// SystemActor is used by background jobs
var SystemActor = Actor{}

func (a Actor) userIDPtr() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry. Failures are logged and never reach the caller.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, entity string, entityID uint, details string) {
	entry := &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Warn("failed to write audit log", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.AuditQuery) ([]models.AuditLog, int64, error) {
	return s.repo.List(ctx, query)
}
