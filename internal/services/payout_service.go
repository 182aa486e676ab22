// internal/services/payout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/transfer"

	"github.com/javajoker/land-escrow-backend/internal/config"
	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
	"github.com/javajoker/land-escrow-backend/internal/utils"
)

var ErrNoPayoutAccount = errors.New("payee has no payout account")

// PayoutInitiator submits a payout to the money rail and returns the
// provider's reference.
type PayoutInitiator interface {
	Name() string
	Initiate(ctx context.Context, payout *models.PayoutRecord, account *models.PayoutAccount) (string, error)
}

// StripePayoutInitiator sends a Stripe Transfer to the seller's connected
// account.
type StripePayoutInitiator struct {
	currency    string
	newTransfer func(params *stripe.TransferParams) (*stripe.Transfer, error)
}

func NewStripePayoutInitiator(cfg config.PaymentConfig) *StripePayoutInitiator {
	// Initialize Stripe
	stripe.Key = cfg.StripeSecretKey

	return &StripePayoutInitiator{
		currency:    cfg.PayoutCurrency,
		newTransfer: transfer.New,
	}
}

func (i *StripePayoutInitiator) Name() string { return "stripe" }

func (i *StripePayoutInitiator) Initiate(ctx context.Context, payout *models.PayoutRecord, account *models.PayoutAccount) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(payout.AmountGhs),
		Currency:      stripe.String(i.currency),
		Destination:   stripe.String(account.AccountRef),
		TransferGroup: stripe.String(payout.TransactionID.String()),
	}
	params.Context = ctx
	params.SetIdempotencyKey(utils.HashString("payout:" + payout.ID.String()))
	params.AddMetadata("payout_id", payout.ID.String())
	params.AddMetadata("transaction_id", payout.TransactionID.String())

	t, err := i.newTransfer(params)
	if err != nil {
		return "", fmt.Errorf("failed to create transfer: %w", err)
	}
	return t.ID, nil
}

// ManualPayoutInitiator records payouts for the finance team to settle by hand.
type ManualPayoutInitiator struct{}

func (ManualPayoutInitiator) Name() string { return "manual" }

func (ManualPayoutInitiator) Initiate(ctx context.Context, payout *models.PayoutRecord, account *models.PayoutAccount) (string, error) {
	logrus.WithFields(logrus.Fields{
		"payout_id":      payout.ID,
		"transaction_id": payout.TransactionID,
		"amount_ghs":     payout.AmountGhs,
		"account":        account.AccountRef,
	}).Info("Payout queued for manual settlement")
	return "manual-" + payout.ID.String(), nil
}

// PayoutService hands PENDING payout records to the initiator after the
// release has committed.
type PayoutService struct {
	store     repositories.Store
	audit     *AuditService
	initiator PayoutInitiator
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewPayoutService(store repositories.Store, audit *AuditService, initiator PayoutInitiator) *PayoutService {
	return &PayoutService{
		store:     store,
		audit:     audit,
		initiator: initiator,
		timeout:   30 * time.Second,
	}
}

// HandoffAsync submits the payout in the background.
func (s *PayoutService) HandoffAsync(payoutID uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Handoff(ctx, payoutID); err != nil {
			logrus.WithError(err).WithField("payout_id", payoutID).Error("Payout hand-off failed")
		}
	}()
}

// Wait blocks until background hand-offs finish.
func (s *PayoutService) Wait() {
	s.wg.Wait()
}

// Handoff submits one PENDING payout and records the outcome. Records in any
// other status are left alone.
func (s *PayoutService) Handoff(ctx context.Context, payoutID uuid.UUID) error {
	var payout *models.PayoutRecord
	err := s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		p, err := tx.LockPayout(payoutID)
		payout = p
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load payout: %w", err)
	}
	if payout.Status != models.PayoutStatusPending {
		return nil
	}

	var reference string
	account, err := s.store.GetPayoutAccount(ctx, payout.PayeeUserID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		err = ErrNoPayoutAccount
	case err == nil:
		reference, err = s.initiator.Initiate(ctx, payout, account)
	}

	return s.recordOutcome(ctx, payoutID, reference, err)
}

func (s *PayoutService) recordOutcome(ctx context.Context, payoutID uuid.UUID, reference string, initErr error) error {
	return s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		payout, err := tx.LockPayout(payoutID)
		if err != nil {
			return err
		}
		if payout.Status != models.PayoutStatusPending {
			return nil
		}

		payout.Provider = s.initiator.Name()
		action := ActionPayoutSubmitted
		if initErr != nil {
			payout.Status = models.PayoutStatusFailed
			payout.FailureReason = initErr.Error()
			action = ActionPayoutFailed
		} else {
			payout.Status = models.PayoutStatusSubmitted
			payout.ProviderReference = reference
		}

		if err := tx.SavePayout(payout); err != nil {
			return fmt.Errorf("failed to update payout: %w", err)
		}

		return s.audit.Record(tx, EntityPayout, payout.ID, SystemActor(), action, models.JSONB{
			"transaction_id":     payout.TransactionID.String(),
			"status":             string(payout.Status),
			"provider":           payout.Provider,
			"provider_reference": payout.ProviderReference,
			"failure_reason":     payout.FailureReason,
		})
	})
}

// RetryPending re-submits up to limit PENDING payouts and returns how many
// were attempted.
func (s *PayoutService) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.ListPendingPayouts(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending payouts: %w", err)
	}

	for _, p := range pending {
		if err := s.Handoff(ctx, p.ID); err != nil {
			logrus.WithError(err).WithField("payout_id", p.ID).Error("Payout retry failed")
		}
	}
	return len(pending), nil
}

func (s *PayoutService) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.PayoutRecord, error) {
	return s.store.ListPayouts(ctx, transactionID)
}
