// internal/repositories/gorm_store.go
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/land-escrow-backend/internal/database"
	"github.com/javajoker/land-escrow-backend/internal/models"
)

// GormStore is the PostgreSQL-backed Store. Row locks use SELECT ... FOR UPDATE.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.PartyID != nil {
		query = query.Where("buyer_id = ? OR seller_id = ?", *filter.PartyID, *filter.PartyID)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *GormStore) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *GormStore) ListDisputes(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&disputes).Error
	return disputes, err
}

func (s *GormStore) ListAuditEntries(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp ASC").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) ListPayouts(ctx context.Context, transactionID uuid.UUID) ([]models.PayoutRecord, error) {
	var payouts []models.PayoutRecord
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&payouts).Error
	return payouts, err
}

func (s *GormStore) ListPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRecord, error) {
	var payouts []models.PayoutRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", models.PayoutStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&payouts).Error
	return payouts, err
}

func (s *GormStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	var a models.PayoutAccount
	if err := s.db.WithContext(ctx).First(&a, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) FindActiveSellerSubscription(ctx context.Context, sellerID uuid.UUID, at time.Time) (*models.SellerSubscription, error) {
	var sub models.SellerSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND status = ?", sellerID, models.SubscriptionCategorySeller, models.SubscriptionStatusActive).
		Where("start_date <= ? AND end_date >= ?", at, at).
		Order("start_date DESC").
		First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *GormStore) GetSetting(ctx context.Context, category, key string) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := s.db.WithContext(ctx).Where("category = ? AND key = ?", category, key).First(&setting).Error; err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) CreateListing(ctx context.Context, l *models.Listing) error {
	return translate(s.db.WithContext(ctx).Create(l).Error)
}

func (s *GormStore) CreateSubscription(ctx context.Context, sub *models.SellerSubscription) error {
	return translate(s.db.WithContext(ctx).Create(sub).Error)
}

func (s *GormStore) CreatePayoutAccount(ctx context.Context, a *models.PayoutAccount) error {
	return translate(s.db.WithContext(ctx).Create(a).Error)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) forUpdate() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *gormTx) CreateTransaction(txn *models.Transaction) error {
	return translate(t.db.Create(txn).Error)
}

func (t *gormTx) LockTransaction(id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := t.forUpdate().First(&txn, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (t *gormTx) SaveTransaction(txn *models.Transaction) error {
	return translate(t.db.Save(txn).Error)
}

func (t *gormTx) LockDispute(id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	if err := t.forUpdate().First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (t *gormTx) FindOpenDispute(transactionID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := t.forUpdate().
		Where("transaction_id = ? AND status IN ?", transactionID,
			[]models.DisputeStatus{models.DisputeStatusOpen, models.DisputeStatusUnderReview}).
		First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (t *gormTx) CreateDispute(d *models.Dispute) error {
	return translate(t.db.Create(d).Error)
}

func (t *gormTx) SaveDispute(d *models.Dispute) error {
	return translate(t.db.Save(d).Error)
}

func (t *gormTx) CreatePayout(p *models.PayoutRecord) error {
	return translate(t.db.Create(p).Error)
}

func (t *gormTx) LockPayout(id uuid.UUID) (*models.PayoutRecord, error) {
	var p models.PayoutRecord
	if err := t.forUpdate().First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) SavePayout(p *models.PayoutRecord) error {
	return translate(t.db.Save(p).Error)
}

func (t *gormTx) GetListing(id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	if err := t.db.First(&l, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (t *gormTx) SetListingStatus(id uuid.UUID, status models.ListingStatus) error {
	result := t.db.Model(&models.Listing{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gormTx) GetSetting(category, key string) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := t.forUpdate().Where("category = ? AND key = ?", category, key).First(&setting).Error; err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (t *gormTx) UpsertSetting(s *models.PlatformSetting) error {
	return translate(t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "data_type", "description", "updated_by", "updated_at"}),
	}).Create(s).Error)
}

func (t *gormTx) AppendAudit(entry *models.AuditEntry) error {
	return t.db.Create(entry).Error
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
