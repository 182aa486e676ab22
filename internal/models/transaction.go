// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one escrowed land purchase. Amounts are pesewas.
type Transaction struct {
	BaseModel
	Status         TransactionStatus `json:"status" gorm:"type:varchar(32);not null;default:'CREATED';index"`
	AgreedPriceGhs int64             `json:"agreed_price_ghs" gorm:"type:bigint;not null"`
	PlatformFeeGhs *int64            `json:"platform_fee_ghs" gorm:"type:bigint"`
	SellerNetGhs   *int64            `json:"seller_net_ghs" gorm:"type:bigint"`
	BuyerRefundGhs *int64            `json:"buyer_refund_ghs,omitempty" gorm:"type:bigint"`
	BuyerID        uuid.UUID         `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID       uuid.UUID         `json:"seller_id" gorm:"type:uuid;not null;index"`
	ListingID      uuid.UUID         `json:"listing_id" gorm:"type:uuid;not null;index"`
	ClosedAt       *time.Time        `json:"closed_at"`
	Version        int64             `json:"version" gorm:"not null;default:0"`

	// Relationships
	Listing *Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
}

// IsParty reports whether the user is the buyer or the seller.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return userID == t.BuyerID || userID == t.SellerID
}

// Listing is the read model of a land listing owned by the listings service.
type Listing struct {
	BaseModel
	SellerID uuid.UUID     `json:"seller_id" gorm:"type:uuid;not null;index"`
	Title    string        `json:"title" gorm:"size:255;not null"`
	Region   string        `json:"region,omitempty" gorm:"size:100"`
	Status   ListingStatus `json:"status" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
}
