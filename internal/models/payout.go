// internal/models/payout.go
package models

import (
	"github.com/google/uuid"
)

// PayoutRecord is the instruction to pay a seller for a released transaction.
type PayoutRecord struct {
	BaseModel
	TransactionID     uuid.UUID    `json:"transaction_id" gorm:"type:uuid;not null;uniqueIndex"`
	PayeeUserID       uuid.UUID    `json:"payee_user_id" gorm:"type:uuid;not null;index"`
	AmountGhs         int64        `json:"amount_ghs" gorm:"type:bigint;not null"`
	FeesGhs           int64        `json:"fees_ghs" gorm:"type:bigint;not null"`
	Status            PayoutStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Provider          string       `json:"provider,omitempty" gorm:"size:50"`
	ProviderReference string       `json:"provider_reference,omitempty" gorm:"size:255"`
	FailureReason     string       `json:"failure_reason,omitempty" gorm:"type:text"`
}

// PayoutAccount maps a seller to their account on the payout provider.
type PayoutAccount struct {
	BaseModel
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Provider   string    `json:"provider" gorm:"size:50;not null"`
	AccountRef string    `json:"account_ref" gorm:"size:255;not null"`
}
