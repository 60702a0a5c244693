package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"match-narrator/internal/model"
)

// AuditService records who changed what.
type AuditService struct {
	store AuditStore
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Record appends an audit entry. Failures are logged, never returned: the
// audited change has already been committed.
func (s *AuditService) Record(ctx context.Context, actor Actor, action, entity string, entityID int64, details any) {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			log.Warn().Err(err).Str("action", action).Msg("Failed to encode audit details")
		} else {
			raw = b
		}
	}

	_, err := s.store.Create(ctx, &model.AuditEntry{
		ActorID:  actor.id(),
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Details:  raw,
	})
	if err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("entity", entity).
			Int64("entity_id", entityID).
			Int64("actor_id", actor.UserID).
			Msg("Failed to write audit entry")
	}
}

// List returns audit entries, newest first.
func (s *AuditService) List(ctx context.Context, f model.AuditFilter) ([]*model.AuditEntry, error) {
	entries, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}
