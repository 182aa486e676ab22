// internal/repositories/memory_store.go
package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

// MemoryStore keeps every table in process. Units of work are serialized by a
// single mutex and rolled back by restoring a snapshot. Used for local runs
// (DB_DRIVER=memory) and service tests.
type MemoryStore struct {
	mu sync.RWMutex
	memoryTables
}

type memoryTables struct {
	transactions  map[uuid.UUID]models.Transaction
	disputes      map[uuid.UUID]models.Dispute
	payouts       map[uuid.UUID]models.PayoutRecord
	listings      map[uuid.UUID]models.Listing
	users         map[uuid.UUID]models.User
	subscriptions map[uuid.UUID]models.SellerSubscription
	accounts      map[uuid.UUID]models.PayoutAccount
	settings      map[string]models.PlatformSetting
	audit         []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memoryTables: memoryTables{
		transactions:  make(map[uuid.UUID]models.Transaction),
		disputes:      make(map[uuid.UUID]models.Dispute),
		payouts:       make(map[uuid.UUID]models.PayoutRecord),
		listings:      make(map[uuid.UUID]models.Listing),
		users:         make(map[uuid.UUID]models.User),
		subscriptions: make(map[uuid.UUID]models.SellerSubscription),
		accounts:      make(map[uuid.UUID]models.PayoutAccount),
		settings:      make(map[string]models.PlatformSetting),
	}}
}

func (t memoryTables) clone() memoryTables {
	return memoryTables{
		transactions:  cloneMap(t.transactions),
		disputes:      cloneMap(t.disputes),
		payouts:       cloneMap(t.payouts),
		listings:      cloneMap(t.listings),
		users:         cloneMap(t.users),
		subscriptions: cloneMap(t.subscriptions),
		accounts:      cloneMap(t.accounts),
		settings:      cloneMap(t.settings),
		audit:         append([]models.AuditEntry(nil), t.audit...),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func settingKey(category, key string) string {
	return category + "/" + key
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(tx Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.memoryTables.clone()
	defer func() {
		if r := recover(); r != nil {
			s.memoryTables = snapshot
			panic(r)
		}
		if err != nil {
			s.memoryTables = snapshot
		}
	}()

	return fn(&memoryTx{tables: &s.memoryTables})
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Transaction
	for _, t := range s.transactions {
		if filter.PartyID != nil && !t.IsParty(*filter.PartyID) {
			continue
		}
		if filter.SellerID != nil && t.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		start := min(filter.Offset, len(matched))
		end := min(start+filter.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s *MemoryStore) GetDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListDisputes(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var disputes []models.Dispute
	for _, d := range s.disputes {
		if d.TransactionID == transactionID {
			disputes = append(disputes, d)
		}
	}
	sort.Slice(disputes, func(i, j int) bool {
		return disputes[i].CreatedAt.Before(disputes[j].CreatedAt)
	})
	return disputes, nil
}

func (s *MemoryStore) ListAuditEntries(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []models.AuditEntry
	for _, e := range s.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *MemoryStore) ListPayouts(ctx context.Context, transactionID uuid.UUID) ([]models.PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payouts []models.PayoutRecord
	for _, p := range s.payouts {
		if p.TransactionID == transactionID {
			payouts = append(payouts, p)
		}
	}
	return payouts, nil
}

func (s *MemoryStore) ListPendingPayouts(ctx context.Context, limit int) ([]models.PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payouts []models.PayoutRecord
	for _, p := range s.payouts {
		if p.Status == models.PayoutStatusPending {
			payouts = append(payouts, p)
		}
	}
	sort.Slice(payouts, func(i, j int) bool {
		return payouts[i].CreatedAt.Before(payouts[j].CreatedAt)
	})
	if limit > 0 && len(payouts) > limit {
		payouts = payouts[:limit]
	}
	return payouts, nil
}

func (s *MemoryStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetPayoutAccount(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.UserID == userID {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindActiveSellerSubscription(ctx context.Context, sellerID uuid.UUID, at time.Time) (*models.SellerSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.SellerSubscription
	for _, sub := range s.subscriptions {
		if sub.UserID != sellerID || sub.Category != models.SubscriptionCategorySeller || !sub.ActiveAt(at) {
			continue
		}
		if best == nil || sub.StartDate.After(best.StartDate) {
			candidate := sub
			best = &candidate
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) GetSetting(ctx context.Context, category, key string) (*models.PlatformSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[settingKey(category, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &setting, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&u.BaseModel)
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) CreateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&l.BaseModel)
	if l.Status == "" {
		l.Status = models.ListingStatusActive
	}
	s.listings[l.ID] = *l
	return nil
}

func (s *MemoryStore) CreateSubscription(ctx context.Context, sub *models.SellerSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&sub.BaseModel)
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (s *MemoryStore) CreatePayoutAccount(ctx context.Context, a *models.PayoutAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.UserID == a.UserID {
			return ErrDuplicate
		}
	}
	stamp(&a.BaseModel)
	s.accounts[a.ID] = *a
	return nil
}

func stamp(b *models.BaseModel) {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// memoryTx operates on the tables while MemoryStore.mu is held.
type memoryTx struct {
	tables *memoryTables
}

func (t *memoryTx) CreateTransaction(txn *models.Transaction) error {
	stamp(&txn.BaseModel)
	if _, exists := t.tables.transactions[txn.ID]; exists {
		return ErrDuplicate
	}
	t.tables.transactions[txn.ID] = *txn
	return nil
}

func (t *memoryTx) LockTransaction(id uuid.UUID) (*models.Transaction, error) {
	txn, ok := t.tables.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &txn, nil
}

func (t *memoryTx) SaveTransaction(txn *models.Transaction) error {
	if _, ok := t.tables.transactions[txn.ID]; !ok {
		return ErrNotFound
	}
	txn.UpdatedAt = time.Now().UTC()
	t.tables.transactions[txn.ID] = *txn
	return nil
}

func (t *memoryTx) LockDispute(id uuid.UUID) (*models.Dispute, error) {
	d, ok := t.tables.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (t *memoryTx) FindOpenDispute(transactionID uuid.UUID) (*models.Dispute, error) {
	for _, d := range t.tables.disputes {
		if d.TransactionID == transactionID && d.Status.IsOpen() {
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) CreateDispute(d *models.Dispute) error {
	if d.Status.IsOpen() {
		if _, err := t.FindOpenDispute(d.TransactionID); err == nil {
			return ErrDuplicate
		}
	}
	stamp(&d.BaseModel)
	t.tables.disputes[d.ID] = *d
	return nil
}

func (t *memoryTx) SaveDispute(d *models.Dispute) error {
	if _, ok := t.tables.disputes[d.ID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	t.tables.disputes[d.ID] = *d
	return nil
}

func (t *memoryTx) CreatePayout(p *models.PayoutRecord) error {
	for _, existing := range t.tables.payouts {
		if existing.TransactionID == p.TransactionID {
			return ErrDuplicate
		}
	}
	stamp(&p.BaseModel)
	t.tables.payouts[p.ID] = *p
	return nil
}

func (t *memoryTx) LockPayout(id uuid.UUID) (*models.PayoutRecord, error) {
	p, ok := t.tables.payouts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memoryTx) SavePayout(p *models.PayoutRecord) error {
	if _, ok := t.tables.payouts[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	t.tables.payouts[p.ID] = *p
	return nil
}

func (t *memoryTx) GetListing(id uuid.UUID) (*models.Listing, error) {
	l, ok := t.tables.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (t *memoryTx) SetListingStatus(id uuid.UUID, status models.ListingStatus) error {
	l, ok := t.tables.listings[id]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	l.UpdatedAt = time.Now().UTC()
	t.tables.listings[id] = l
	return nil
}

func (t *memoryTx) GetSetting(category, key string) (*models.PlatformSetting, error) {
	setting, ok := t.tables.settings[settingKey(category, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &setting, nil
}

func (t *memoryTx) UpsertSetting(s *models.PlatformSetting) error {
	k := settingKey(s.Category, s.Key)
	if existing, ok := t.tables.settings[k]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	stamp(&s.BaseModel)
	t.tables.settings[k] = *s
	return nil
}

func (t *memoryTx) AppendAudit(entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	t.tables.audit = append(t.tables.audit, *entry)
	return nil
}
