// internal/repositories/store.go
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionFilter narrows ListTransactions. A nil PartyID lists everything.
type TransactionFilter struct {
	PartyID  *uuid.UUID
	SellerID *uuid.UUID
	Status   models.TransactionStatus
	Limit    int
	Offset   int
}

// SettingsReader is the lookup the fee resolver needs. CachedSettings wraps it.
type SettingsReader interface {
	GetSetting(ctx context.Context, category, key string) (*models.PlatformSetting, error)
}

// Reader holds the read paths used outside a unit of work.
type Reader interface {
	SettingsReader

	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListDisputes(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error)
	ListAuditEntries(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error)
	ListPayouts(ctx context.Context, transactionID uuid.UUID) ([]models.PayoutRecord, error)
	ListPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRecord, error)
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error)
	FindActiveSellerSubscription(ctx context.Context, sellerID uuid.UUID, at time.Time) (*models.SellerSubscription, error)
}

// Tx is a unit of work. Every write made through it commits or rolls back
// together, and Lock* methods hold the row until the unit ends.
type Tx interface {
	CreateTransaction(t *models.Transaction) error
	LockTransaction(id uuid.UUID) (*models.Transaction, error)
	SaveTransaction(t *models.Transaction) error

	LockDispute(id uuid.UUID) (*models.Dispute, error)
	FindOpenDispute(transactionID uuid.UUID) (*models.Dispute, error)
	CreateDispute(d *models.Dispute) error
	SaveDispute(d *models.Dispute) error

	CreatePayout(p *models.PayoutRecord) error
	LockPayout(id uuid.UUID) (*models.PayoutRecord, error)
	SavePayout(p *models.PayoutRecord) error

	GetListing(id uuid.UUID) (*models.Listing, error)
	SetListingStatus(id uuid.UUID, status models.ListingStatus) error

	GetSetting(category, key string) (*models.PlatformSetting, error)
	UpsertSetting(s *models.PlatformSetting) error

	AppendAudit(entry *models.AuditEntry) error
}

// Store is the persistence boundary of the engine.
type Store interface {
	Reader

	// WithinTransaction runs fn as one unit of work. Returning an error from
	// fn rolls every write back.
	WithinTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Collaborator-owned rows. The engine only reads them, these exist for
	// seeding and tests.
	CreateUser(ctx context.Context, u *models.User) error
	CreateListing(ctx context.Context, l *models.Listing) error
	CreateSubscription(ctx context.Context, s *models.SellerSubscription) error
	CreatePayoutAccount(ctx context.Context, a *models.PayoutAccount) error
}
