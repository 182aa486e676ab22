// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the slice of the identity service the engine needs: role and
// contact details for notifications.
type User struct {
	BaseModel
	Name  string   `json:"name" gorm:"size:255;not null"`
	Email string   `json:"email" gorm:"size:255;index"`
	Phone string   `json:"phone" gorm:"size:32"`
	Role  UserRole `json:"role" gorm:"type:varchar(20);not null;default:'buyer'"`
}

// SellerSubscription is a paid plan that overrides the platform fee rate.
type SellerSubscription struct {
	BaseModel
	UserID             uuid.UUID            `json:"user_id" gorm:"type:uuid;not null;index"`
	Category           SubscriptionCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Plan               string               `json:"plan" gorm:"size:50;not null"`
	Status             SubscriptionStatus   `json:"status" gorm:"type:varchar(20);not null;index"`
	StartDate          time.Time            `json:"start_date" gorm:"not null"`
	EndDate            time.Time            `json:"end_date" gorm:"not null"`
	TransactionFeeRate decimal.Decimal      `json:"transaction_fee_rate" gorm:"type:numeric(6,5);not null"`
}

// ActiveAt reports whether the subscription covers t.
func (s *SellerSubscription) ActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && !t.Before(s.StartDate) && !t.After(s.EndDate)
}
