// internal/services/transitions_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

func TestCanTransitionMatchesLifecycle(t *testing.T) {
	allowed := map[models.TransactionStatus][]models.TransactionStatus{
		models.TransactionStatusCreated:            {models.TransactionStatusEscrowRequested},
		models.TransactionStatusEscrowRequested:    {models.TransactionStatusFunded},
		models.TransactionStatusFunded:             {models.TransactionStatusVerificationPeriod},
		models.TransactionStatusVerificationPeriod: {models.TransactionStatusReadyToRelease, models.TransactionStatusDisputed},
		models.TransactionStatusDisputed:           {models.TransactionStatusReadyToRelease, models.TransactionStatusRefunded, models.TransactionStatusPartialSettled},
		models.TransactionStatusReadyToRelease:     {models.TransactionStatusReleased},
		models.TransactionStatusReleased:           {models.TransactionStatusClosed},
		models.TransactionStatusRefunded:           {models.TransactionStatusClosed},
		models.TransactionStatusPartialSettled:     {models.TransactionStatusClosed},
	}

	for _, from := range models.TransactionStatuses {
		for _, to := range models.TransactionStatuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestClosedIsTerminal(t *testing.T) {
	assert.Empty(t, NextStatuses(models.TransactionStatusClosed))
	assert.False(t, CanTransition(models.TransactionStatusClosed, models.TransactionStatusCreated))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(models.TransactionStatusDisputed)
	require.Len(t, next, 3)
	next[0] = models.TransactionStatusClosed

	assert.Equal(t, models.TransactionStatusReadyToRelease, NextStatuses(models.TransactionStatusDisputed)[0])
}

func TestCanTransitionDispute(t *testing.T) {
	assert.True(t, CanTransitionDispute(models.DisputeStatusOpen, models.DisputeStatusUnderReview))
	assert.True(t, CanTransitionDispute(models.DisputeStatusOpen, models.DisputeStatusResolvedSplit))
	assert.True(t, CanTransitionDispute(models.DisputeStatusUnderReview, models.DisputeStatusResolvedBuyer))
	assert.True(t, CanTransitionDispute(models.DisputeStatusResolvedSeller, models.DisputeStatusClosed))

	assert.False(t, CanTransitionDispute(models.DisputeStatusUnderReview, models.DisputeStatusOpen))
	assert.False(t, CanTransitionDispute(models.DisputeStatusResolvedBuyer, models.DisputeStatusResolvedSeller))
	assert.False(t, CanTransitionDispute(models.DisputeStatusClosed, models.DisputeStatusOpen))
	assert.False(t, CanTransitionDispute(models.DisputeStatusOpen, models.DisputeStatusClosed))
}

func TestRolePolicy(t *testing.T) {
	txn := &models.Transaction{BuyerID: uuid.New(), SellerID: uuid.New()}
	outsider := uuid.New()

	policy := DefaultRolePolicy()
	assert.True(t, policy.Allows(txn, txn.BuyerID, models.TransactionStatusDisputed))
	assert.False(t, policy.Allows(txn, txn.SellerID, models.TransactionStatusDisputed))
	assert.True(t, policy.Allows(txn, txn.SellerID, models.TransactionStatusReleased))
	assert.False(t, policy.Allows(txn, txn.BuyerID, models.TransactionStatusReleased))
	assert.True(t, policy.Allows(txn, txn.SellerID, models.TransactionStatusEscrowRequested))
	assert.False(t, policy.Allows(txn, outsider, models.TransactionStatusEscrowRequested))

	t.Run("overrides", func(t *testing.T) {
		custom, err := NewRolePolicy(map[string]string{"FUNDED": "seller"})
		require.NoError(t, err)
		assert.Equal(t, PartySeller, custom.PartyFor(models.TransactionStatusFunded))
		assert.True(t, custom.Allows(txn, txn.SellerID, models.TransactionStatusFunded))
		assert.False(t, custom.Allows(txn, txn.BuyerID, models.TransactionStatusFunded))

		// The default policy is untouched.
		assert.Equal(t, PartyBuyer, DefaultRolePolicy().PartyFor(models.TransactionStatusFunded))
	})

	t.Run("rejects fixed and unknown entries", func(t *testing.T) {
		_, err := NewRolePolicy(map[string]string{"DISPUTED": "seller"})
		assert.Error(t, err)
		_, err = NewRolePolicy(map[string]string{"RELEASED": "either"})
		assert.Error(t, err)
		_, err = NewRolePolicy(map[string]string{"SHIPPED": "buyer"})
		assert.Error(t, err)
		_, err = NewRolePolicy(map[string]string{"FUNDED": "notary"})
		assert.Error(t, err)
	})
}

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := transactionTransitionError(models.TransactionStatusCreated, models.TransactionStatusReleased)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "CREATED")
	assert.Contains(t, err.Error(), "RELEASED")
}
