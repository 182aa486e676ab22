// internal/models/audit.go
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrAuditImmutable = errors.New("audit entries are append-only")

// AuditEntry records a state change or monetary computation. Rows are never
// updated or deleted.
type AuditEntry struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EntityType  string     `json:"entity_type" gorm:"size:50;not null;index:idx_audit_entity"`
	EntityID    uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null;index:idx_audit_entity"`
	ActorType   ActorType  `json:"actor_type" gorm:"type:varchar(10);not null"`
	ActorUserID *uuid.UUID `json:"actor_user_id" gorm:"type:uuid;index"`
	Action      string     `json:"action" gorm:"size:100;not null;index"`
	Diff        JSONB      `json:"diff" gorm:"type:jsonb"`
	Timestamp   time.Time  `json:"timestamp" gorm:"not null;index"`
}

func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}

func (a *AuditEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *AuditEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
