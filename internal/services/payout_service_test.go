// internal/services/payout_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

type fakeInitiator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (i *fakeInitiator) Name() string { return "fake" }

func (i *fakeInitiator) Initiate(ctx context.Context, payout *models.PayoutRecord, account *models.PayoutAccount) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if i.err != nil {
		return "", i.err
	}
	return "ref-" + account.AccountRef, nil
}

func createPendingPayout(t *testing.T, store *repositories.MemoryStore, payeeID uuid.UUID) *models.PayoutRecord {
	t.Helper()
	payout := &models.PayoutRecord{
		TransactionID: uuid.New(),
		PayeeUserID:   payeeID,
		AmountGhs:     975_000,
		FeesGhs:       25_000,
		Status:        models.PayoutStatusPending,
	}
	require.NoError(t, store.WithinTransaction(context.Background(), func(tx repositories.Tx) error {
		return tx.CreatePayout(payout)
	}))
	return payout
}

func TestPayoutHandoffSubmits(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	audit := NewAuditService(store)
	initiator := &fakeInitiator{}
	svc := NewPayoutService(store, audit, initiator)

	sellerID := uuid.New()
	require.NoError(t, store.CreatePayoutAccount(ctx, &models.PayoutAccount{UserID: sellerID, Provider: "fake", AccountRef: "GH-0001"}))
	payout := createPendingPayout(t, store, sellerID)

	require.NoError(t, svc.Handoff(ctx, payout.ID))

	payouts, err := store.ListPayouts(ctx, payout.TransactionID)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, models.PayoutStatusSubmitted, payouts[0].Status)
	assert.Equal(t, "ref-GH-0001", payouts[0].ProviderReference)
	assert.Equal(t, "fake", payouts[0].Provider)

	// A second hand-off of a submitted record is a no-op.
	require.NoError(t, svc.Handoff(ctx, payout.ID))
	assert.Equal(t, 1, initiator.calls)

	entries, err := audit.List(ctx, EntityPayout, payout.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionPayoutSubmitted, entries[0].Action)
}

func TestPayoutHandoffFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("no payout account", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		initiator := &fakeInitiator{}
		svc := NewPayoutService(store, NewAuditService(store), initiator)
		payout := createPendingPayout(t, store, uuid.New())

		require.NoError(t, svc.Handoff(ctx, payout.ID))

		payouts, err := store.ListPayouts(ctx, payout.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutStatusFailed, payouts[0].Status)
		assert.Equal(t, ErrNoPayoutAccount.Error(), payouts[0].FailureReason)
		assert.Zero(t, initiator.calls)
	})

	t.Run("provider error", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		svc := NewPayoutService(store, NewAuditService(store), &fakeInitiator{err: errors.New("insufficient platform balance")})
		sellerID := uuid.New()
		require.NoError(t, store.CreatePayoutAccount(ctx, &models.PayoutAccount{UserID: sellerID, Provider: "fake", AccountRef: "GH-0002"}))
		payout := createPendingPayout(t, store, sellerID)

		require.NoError(t, svc.Handoff(ctx, payout.ID))

		payouts, err := store.ListPayouts(ctx, payout.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, models.PayoutStatusFailed, payouts[0].Status)
		assert.Contains(t, payouts[0].FailureReason, "insufficient platform balance")
	})

	t.Run("unknown payout", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		svc := NewPayoutService(store, NewAuditService(store), &fakeInitiator{})
		assert.Error(t, svc.Handoff(ctx, uuid.New()))
	})
}

func TestRetryPendingAndAsyncHandoff(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	initiator := &fakeInitiator{}
	svc := NewPayoutService(store, NewAuditService(store), initiator)

	sellerID := uuid.New()
	require.NoError(t, store.CreatePayoutAccount(ctx, &models.PayoutAccount{UserID: sellerID, Provider: "fake", AccountRef: "GH-0003"}))
	first := createPendingPayout(t, store, sellerID)
	createPendingPayout(t, store, sellerID)

	svc.HandoffAsync(first.ID)
	svc.Wait()

	pending, err := store.ListPendingPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	attempted, err := svc.RetryPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	pending, err = store.ListPendingPayouts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 2, initiator.calls)
}

func TestStripePayoutInitiator(t *testing.T) {
	var captured *stripe.TransferParams
	initiator := &StripePayoutInitiator{
		currency: "ghs",
		newTransfer: func(params *stripe.TransferParams) (*stripe.Transfer, error) {
			captured = params
			return &stripe.Transfer{ID: "tr_123"}, nil
		},
	}

	payout := &models.PayoutRecord{TransactionID: uuid.New(), AmountGhs: 975_000}
	payout.ID = uuid.New()
	ref, err := initiator.Initiate(context.Background(), payout, &models.PayoutAccount{AccountRef: "acct_seller"})
	require.NoError(t, err)
	assert.Equal(t, "tr_123", ref)

	require.NotNil(t, captured)
	assert.Equal(t, int64(975_000), *captured.Amount)
	assert.Equal(t, "ghs", *captured.Currency)
	assert.Equal(t, "acct_seller", *captured.Destination)
	assert.Equal(t, payout.TransactionID.String(), *captured.TransferGroup)
	assert.Equal(t, payout.ID.String(), captured.Metadata["payout_id"])
	require.NotNil(t, captured.IdempotencyKey)

	t.Run("error is wrapped", func(t *testing.T) {
		failing := &StripePayoutInitiator{
			currency: "ghs",
			newTransfer: func(*stripe.TransferParams) (*stripe.Transfer, error) {
				return nil, errors.New("account not onboarded")
			},
		}
		_, err := failing.Initiate(context.Background(), payout, &models.PayoutAccount{AccountRef: "acct_seller"})
		assert.ErrorContains(t, err, "account not onboarded")
	})
}
