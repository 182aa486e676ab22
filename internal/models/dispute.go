// internal/models/dispute.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Dispute struct {
	BaseModel
	TransactionID uuid.UUID        `json:"transaction_id" gorm:"type:uuid;not null;index"`
	Status        DisputeStatus    `json:"status" gorm:"type:varchar(20);not null;default:'OPEN';index"`
	RaisedByID    uuid.UUID        `json:"raised_by_id" gorm:"type:uuid;not null"`
	Summary       string           `json:"summary" gorm:"type:text"`
	EvidenceURLs  pq.StringArray   `json:"evidence_urls" gorm:"type:text[]"`
	Resolution    *string          `json:"resolution" gorm:"type:text"`
	BuyerShare    *decimal.Decimal `json:"buyer_share,omitempty" gorm:"type:numeric(6,5)"`
	ResolvedAt    *time.Time       `json:"resolved_at"`
	ResolvedByID  *uuid.UUID       `json:"resolved_by_id" gorm:"type:uuid"`
}
