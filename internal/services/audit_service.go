// internal/services/audit_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

// Audited entity types
const (
	EntityTransaction = "transaction"
	EntityDispute     = "dispute"
	EntityPayout      = "payout"
	EntitySetting     = "platform_setting"
)

// Audit actions
const (
	ActionTransactionCreated = "TRANSACTION_CREATED"
	ActionStatusChange       = "STATUS_CHANGE"
	ActionFeesCollected      = "FEES_COLLECTED"
	ActionDisputeOpened      = "DISPUTE_OPENED"
	ActionDisputeWithdrawn   = "DISPUTE_WITHDRAWN"
	ActionPayoutCreated      = "PAYOUT_CREATED"
	ActionPayoutSubmitted    = "PAYOUT_SUBMITTED"
	ActionPayoutFailed       = "PAYOUT_FAILED"
	ActionUpdateSetting      = "UPDATE_SETTING"
)

// Actor is who an audit entry is attributed to.
type Actor struct {
	Type   models.ActorType
	UserID *uuid.UUID
}

func UserActor(id uuid.UUID) Actor {
	return Actor{Type: models.ActorTypeUser, UserID: &id}
}

func SystemActor() Actor {
	return Actor{Type: models.ActorTypeSystem}
}

// AuditService appends entries inside a unit of work and serves the trail.
type AuditService struct {
	store repositories.Reader
}

func NewAuditService(store repositories.Reader) *AuditService {
	return &AuditService{store: store}
}

// Record appends one entry through tx so it commits with the change it
// describes.
func (s *AuditService) Record(tx repositories.Tx, entityType string, entityID uuid.UUID, actor Actor, action string, diff models.JSONB) error {
	entry := &models.AuditEntry{
		EntityType:  entityType,
		EntityID:    entityID,
		ActorType:   actor.Type,
		ActorUserID: actor.UserID,
		Action:      action,
		Diff:        diff,
	}
	if err := tx.AppendAudit(entry); err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", action, err)
	}
	return nil
}

func (s *AuditService) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error) {
	entries, err := s.store.ListAuditEntries(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

func statusDiff(from, to string) models.JSONB {
	return models.JSONB{"from": from, "to": to}
}
