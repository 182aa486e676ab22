// internal/services/fixtures_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

const testPrice int64 = 1_000_000 // GHS 10,000.00

type recordingNotifier struct {
	mu       sync.Mutex
	disputed []uuid.UUID
	released []int64
}

func (n *recordingNotifier) NotifyTransactionDisputed(ctx context.Context, sellerID uuid.UUID, listingTitle string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disputed = append(n.disputed, sellerID)
}

func (n *recordingNotifier) NotifyTransactionReleased(ctx context.Context, sellerID uuid.UUID, listingTitle string, netAmount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.released = append(n.released, netAmount)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.disputed), len(n.released)
}

type recordingHandoff struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (h *recordingHandoff) HandoffAsync(payoutID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, payoutID)
}

func (h *recordingHandoff) handed() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uuid.UUID(nil), h.ids...)
}

// escrowFixture wires the engine on a MemoryStore with two parties, staff and
// one active listing. The platform fee defaults to 2.5%.
type escrowFixture struct {
	ctx      context.Context
	store    *repositories.MemoryStore
	audit    *AuditService
	fees     *FeeService
	escrow   *EscrowService
	disputes *DisputeService
	notifier *recordingNotifier
	handoff  *recordingHandoff

	buyer    *models.User
	seller   *models.User
	reviewer *models.User
	admin    *models.User
	listing  *models.Listing
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()

	f := &escrowFixture{
		ctx:      context.Background(),
		store:    repositories.NewMemoryStore(),
		notifier: &recordingNotifier{},
		handoff:  &recordingHandoff{},
	}

	f.buyer = f.createUser(t, "Ama Mensah", models.UserRoleBuyer)
	f.seller = f.createUser(t, "Kwame Boateng", models.UserRoleSeller)
	f.reviewer = f.createUser(t, "Efua Owusu", models.UserRoleReviewer)
	f.admin = f.createUser(t, "Yaw Asante", models.UserRoleAdmin)
	f.listing = f.createListing(t, f.seller.ID)

	f.audit = NewAuditService(f.store)
	f.fees = NewFeeService(f.store, f.store, decimal.RequireFromString("2.5"))
	f.escrow = NewEscrowService(f.store, f.fees, f.audit, f.notifier, f.handoff, DefaultRolePolicy())
	f.disputes = NewDisputeService(f.store, f.escrow, f.fees, f.audit)
	return f
}

func (f *escrowFixture) createUser(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, f.store.CreateUser(f.ctx, u))
	return u
}

func (f *escrowFixture) createListing(t *testing.T, sellerID uuid.UUID) *models.Listing {
	t.Helper()
	l := &models.Listing{SellerID: sellerID, Title: "2 plots, East Legon", Region: "Greater Accra", Status: models.ListingStatusActive}
	require.NoError(t, f.store.CreateListing(f.ctx, l))
	return l
}

func (f *escrowFixture) subscribe(t *testing.T, sellerID uuid.UUID, plan, rate string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.CreateSubscription(f.ctx, &models.SellerSubscription{
		UserID:             sellerID,
		Category:           models.SubscriptionCategorySeller,
		Plan:               plan,
		Status:             models.SubscriptionStatusActive,
		StartDate:          now.Add(-24 * time.Hour),
		EndDate:            now.Add(30 * 24 * time.Hour),
		TransactionFeeRate: decimal.RequireFromString(rate),
	}))
}

func (f *escrowFixture) open(t *testing.T) *models.Transaction {
	t.Helper()
	txn, err := f.escrow.OpenTransaction(f.ctx, OpenTransactionRequest{
		ListingID:      f.listing.ID,
		AgreedPriceGhs: testPrice,
		BuyerID:        f.buyer.ID,
	})
	require.NoError(t, err)
	return txn
}

func (f *escrowFixture) move(t *testing.T, txnID, actorID uuid.UUID, status models.TransactionStatus) *TransitionResult {
	t.Helper()
	result, err := f.escrow.RequestTransition(f.ctx, TransitionRequest{
		TransactionID: txnID,
		Status:        status,
		ActorID:       actorID,
	})
	require.NoError(t, err, "moving to %s", status)
	return result
}

// openInVerification returns a transaction funded and inside the verification
// window.
func (f *escrowFixture) openInVerification(t *testing.T) *models.Transaction {
	t.Helper()
	txn := f.open(t)
	f.move(t, txn.ID, f.buyer.ID, models.TransactionStatusEscrowRequested)
	f.move(t, txn.ID, f.buyer.ID, models.TransactionStatusFunded)
	return f.move(t, txn.ID, f.seller.ID, models.TransactionStatusVerificationPeriod).Transaction
}

func (f *escrowFixture) openDisputed(t *testing.T) (*models.Transaction, *models.Dispute) {
	t.Helper()
	txn := f.openInVerification(t)
	dispute, err := f.disputes.RaiseDispute(f.ctx, RaiseDisputeRequest{
		TransactionID: txn.ID,
		ActorID:       f.buyer.ID,
		Summary:       "Site plan does not match the surveyed boundary",
		EvidenceURLs:  []string{"https://cdn.example.com/evidence/site-plan.pdf"},
	})
	require.NoError(t, err)
	return txn, dispute
}

func (f *escrowFixture) auditActions(t *testing.T, entityType string, id uuid.UUID) []string {
	t.Helper()
	entries, err := f.audit.List(f.ctx, entityType, id)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
