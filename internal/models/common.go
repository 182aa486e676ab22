// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns an id client-side so callers can reference the row
// before the insert round-trips.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported JSONB source type")
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleBuyer    UserRole = "buyer"
	UserRoleSeller   UserRole = "seller"
	UserRoleReviewer UserRole = "reviewer"
	UserRoleAdmin    UserRole = "admin"
)

// IsStaff reports whether the role may adjudicate disputes.
func (r UserRole) IsStaff() bool {
	return r == UserRoleReviewer || r == UserRoleAdmin
}

type TransactionStatus string

const (
	TransactionStatusCreated            TransactionStatus = "CREATED"
	TransactionStatusEscrowRequested    TransactionStatus = "ESCROW_REQUESTED"
	TransactionStatusFunded             TransactionStatus = "FUNDED"
	TransactionStatusVerificationPeriod TransactionStatus = "VERIFICATION_PERIOD"
	TransactionStatusDisputed           TransactionStatus = "DISPUTED"
	TransactionStatusReadyToRelease     TransactionStatus = "READY_TO_RELEASE"
	TransactionStatusReleased           TransactionStatus = "RELEASED"
	TransactionStatusRefunded           TransactionStatus = "REFUNDED"
	TransactionStatusPartialSettled     TransactionStatus = "PARTIAL_SETTLED"
	TransactionStatusClosed             TransactionStatus = "CLOSED"
)

// TransactionStatuses lists every status in lifecycle order.
var TransactionStatuses = []TransactionStatus{
	TransactionStatusCreated,
	TransactionStatusEscrowRequested,
	TransactionStatusFunded,
	TransactionStatusVerificationPeriod,
	TransactionStatusDisputed,
	TransactionStatusReadyToRelease,
	TransactionStatusReleased,
	TransactionStatusRefunded,
	TransactionStatusPartialSettled,
	TransactionStatusClosed,
}

func (s TransactionStatus) Valid() bool {
	for _, known := range TransactionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen           DisputeStatus = "OPEN"
	DisputeStatusUnderReview    DisputeStatus = "UNDER_REVIEW"
	DisputeStatusResolvedBuyer  DisputeStatus = "RESOLVED_BUYER"
	DisputeStatusResolvedSeller DisputeStatus = "RESOLVED_SELLER"
	DisputeStatusResolvedSplit  DisputeStatus = "RESOLVED_SPLIT"
	DisputeStatusClosed         DisputeStatus = "CLOSED"
)

var DisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusResolvedBuyer,
	DisputeStatusResolvedSeller,
	DisputeStatusResolvedSplit,
	DisputeStatusClosed,
}

func (s DisputeStatus) Valid() bool {
	for _, known := range DisputeStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsOpen is true while a dispute still blocks the transaction.
func (s DisputeStatus) IsOpen() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

func (s DisputeStatus) IsResolution() bool {
	return s == DisputeStatusResolvedBuyer || s == DisputeStatusResolvedSeller || s == DisputeStatusResolvedSplit
}

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "PENDING"
	PayoutStatusSubmitted PayoutStatus = "SUBMITTED"
	PayoutStatusFailed    PayoutStatus = "FAILED"
)

type ListingStatus string

const (
	ListingStatusActive     ListingStatus = "ACTIVE"
	ListingStatusUnderOffer ListingStatus = "UNDER_OFFER"
	ListingStatusSold       ListingStatus = "SOLD"
	ListingStatusWithdrawn  ListingStatus = "WITHDRAWN"
)

type SubscriptionCategory string

const (
	SubscriptionCategorySeller SubscriptionCategory = "SELLER"
	SubscriptionCategoryBuyer  SubscriptionCategory = "BUYER"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)
