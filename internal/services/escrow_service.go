// internal/services/escrow_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

// Resolution text stored on a dispute closed because the parties moved on.
const withdrawnResolution = "withdrawn"

const maxSnapshotAttempts = 3

// errStaleSnapshot means the transaction moved between pricing and locking.
var errStaleSnapshot = errors.New("transaction changed while pricing")

type payoutHandoff interface {
	HandoffAsync(payoutID uuid.UUID)
}

// EscrowService owns the transaction status machine.
type EscrowService struct {
	store    repositories.Store
	fees     *FeeService
	audit    *AuditService
	notifier Notifier
	payouts  payoutHandoff
	policy   RolePolicy
	now      func() time.Time
}

func NewEscrowService(store repositories.Store, fees *FeeService, audit *AuditService, notifier Notifier, payouts payoutHandoff, policy RolePolicy) *EscrowService {
	return &EscrowService{
		store:    store,
		fees:     fees,
		audit:    audit,
		notifier: notifier,
		payouts:  payouts,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type OpenTransactionRequest struct {
	ListingID      uuid.UUID `json:"listing_id" validate:"required"`
	AgreedPriceGhs int64     `json:"agreed_price_ghs" validate:"required,gt=0"`
	BuyerID        uuid.UUID `json:"-"`
}

type TransitionRequest struct {
	TransactionID uuid.UUID                `json:"-"`
	Status        models.TransactionStatus `json:"status" validate:"required,transaction_status"`
	ActorID       uuid.UUID                `json:"-"`
	Summary       string                   `json:"summary,omitempty" validate:"max=4000"`
	EvidenceURLs  []string                 `json:"evidence_urls,omitempty" validate:"max=20,dive,url"`
	BuyerShare    *decimal.Decimal         `json:"buyer_share,omitempty"`
}

// TransitionResult is the transaction after a request, plus any record the
// transition created.
type TransitionResult struct {
	Transaction          *models.Transaction  `json:"transaction"`
	Dispute              *models.Dispute      `json:"dispute,omitempty"`
	Payout               *models.PayoutRecord `json:"payout,omitempty"`
	FeeQuote             *FeeQuote            `json:"fee_quote,omitempty"`
	AlreadyInTargetState bool                 `json:"already_in_target_state"`
}

// transitionInput describes one status hop applied inside a unit of work.
type transitionInput struct {
	target    models.TransactionStatus
	actor     Actor
	cause     models.JSONB
	quote     *FeeQuote
	summary   string
	evidence  []string
	disputeBy uuid.UUID
}

// postCommit collects work that must only run once the unit of work is durable.
type postCommit struct {
	sellerID     uuid.UUID
	listingTitle string
	disputed     bool
	released     bool
	netAmount    int64
	payoutID     uuid.UUID
}

// OpenTransaction starts escrow for an accepted offer on a listing.
func (s *EscrowService) OpenTransaction(ctx context.Context, req OpenTransactionRequest) (*models.Transaction, error) {
	if req.AgreedPriceGhs <= 0 {
		return nil, fmt.Errorf("%w: agreed price must be positive", ErrInvalidRequest)
	}

	var txn *models.Transaction
	err := s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		listing, err := tx.GetListing(req.ListingID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrListingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load listing: %w", err)
		}
		if listing.SellerID == req.BuyerID {
			return fmt.Errorf("%w: sellers cannot buy their own listing", ErrForbidden)
		}
		if listing.Status != models.ListingStatusActive {
			return fmt.Errorf("%w: listing is %s", ErrListingUnavailable, listing.Status)
		}

		txn = &models.Transaction{
			Status:         models.TransactionStatusCreated,
			AgreedPriceGhs: req.AgreedPriceGhs,
			BuyerID:        req.BuyerID,
			SellerID:       listing.SellerID,
			ListingID:      listing.ID,
		}
		if err := tx.CreateTransaction(txn); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		if err := tx.SetListingStatus(listing.ID, models.ListingStatusUnderOffer); err != nil {
			return fmt.Errorf("failed to update listing: %w", err)
		}

		return s.audit.Record(tx, EntityTransaction, txn.ID, UserActor(req.BuyerID), ActionTransactionCreated, models.JSONB{
			"listing_id":       listing.ID.String(),
			"agreed_price_ghs": txn.AgreedPriceGhs,
			"status":           string(txn.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txn.ID,
		"listing_id":     txn.ListingID,
		"buyer_id":       txn.BuyerID,
	}).Info("Escrow transaction opened")

	return txn, nil
}

// RequestTransition moves a transaction to req.Status on behalf of one of its
// parties. When the transaction is already in req.Status the current state is
// returned together with ErrAlreadyInTargetState and nothing is written.
func (s *EscrowService) RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	var (
		result *TransitionResult
		err    error
	)
	for attempt := 0; attempt < maxSnapshotAttempts; attempt++ {
		result, err = s.requestTransition(ctx, req)
		if !errors.Is(err, errStaleSnapshot) {
			return result, err
		}
	}
	return nil, fmt.Errorf("transaction %s kept changing: %w", req.TransactionID, err)
}

func (s *EscrowService) requestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	snapshot, err := s.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, s.translateLoadError(err)
	}

	// Pricing reads settings and subscriptions outside the unit of work so the
	// row lock is held only for the writes.
	var quote *FeeQuote
	if snapshot.IsParty(req.ActorID) && CanTransition(snapshot.Status, req.Status) {
		quote, err = s.priceFor(ctx, snapshot, req.Status, req.BuyerShare)
		if err != nil {
			return nil, err
		}
	}

	var (
		result  *TransitionResult
		effects *postCommit
	)
	err = s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		txn, err := tx.LockTransaction(req.TransactionID)
		if err != nil {
			return s.translateLoadError(err)
		}

		if !txn.IsParty(req.ActorID) {
			return ErrForbidden
		}
		// Only a party allowed to request the target gets the idempotent no-op.
		if !s.policy.Allows(txn, req.ActorID, req.Status) {
			return fmt.Errorf("%w: %s may only be requested by the %s", ErrForbidden, req.Status, s.policy.PartyFor(req.Status))
		}
		if txn.Status == req.Status {
			result = &TransitionResult{Transaction: txn, AlreadyInTargetState: true}
			return nil
		}
		if quote == nil && CanTransition(txn.Status, req.Status) {
			switch req.Status {
			case models.TransactionStatusPartialSettled:
				if req.BuyerShare == nil {
					return ErrInvalidSplit
				}
				return errStaleSnapshot
			case models.TransactionStatusReleased:
				return errStaleSnapshot
			}
		}

		result, effects, err = s.applyTransition(tx, txn, transitionInput{
			target:    req.Status,
			actor:     UserActor(req.ActorID),
			quote:     quote,
			summary:   req.Summary,
			evidence:  req.EvidenceURLs,
			disputeBy: req.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyInTargetState {
		return result, ErrAlreadyInTargetState
	}

	s.afterCommit(ctx, effects)
	return result, nil
}

func (s *EscrowService) priceFor(ctx context.Context, txn *models.Transaction, target models.TransactionStatus, buyerShare *decimal.Decimal) (*FeeQuote, error) {
	switch target {
	case models.TransactionStatusReleased:
		q, err := s.fees.Quote(ctx, txn.SellerID, txn.AgreedPriceGhs)
		if err != nil {
			return nil, err
		}
		return &q, nil
	case models.TransactionStatusPartialSettled:
		if buyerShare == nil {
			return nil, ErrInvalidSplit
		}
		q, err := s.fees.QuoteSplit(ctx, txn.SellerID, txn.AgreedPriceGhs, *buyerShare)
		if err != nil {
			return nil, err
		}
		return &q, nil
	}
	return nil, nil
}

func (s *EscrowService) translateLoadError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTransactionNotFound
	}
	return fmt.Errorf("failed to load transaction: %w", err)
}

// applyTransition performs one hop of the status machine with every side
// effect that must commit alongside it. Callers hold the row lock on txn.
func (s *EscrowService) applyTransition(tx repositories.Tx, txn *models.Transaction, in transitionInput) (*TransitionResult, *postCommit, error) {
	from := txn.Status
	if !in.target.Valid() || !CanTransition(from, in.target) {
		return nil, nil, transactionTransitionError(from, in.target)
	}

	now := s.now()
	txn.Status = in.target
	txn.Version++
	switch in.target {
	case models.TransactionStatusReleased, models.TransactionStatusRefunded, models.TransactionStatusClosed:
		if txn.ClosedAt == nil {
			txn.ClosedAt = &now
		}
	}

	result := &TransitionResult{Transaction: txn}
	effects := &postCommit{sellerID: txn.SellerID}

	listing, err := tx.GetListing(txn.ListingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load listing: %w", err)
	}
	effects.listingTitle = listing.Title

	switch in.target {
	case models.TransactionStatusDisputed:
		dispute, err := s.openDispute(tx, txn, in)
		if err != nil {
			return nil, nil, err
		}
		result.Dispute = dispute
		effects.disputed = true

	case models.TransactionStatusReleased:
		payout, err := s.release(tx, txn, in)
		if err != nil {
			return nil, nil, err
		}
		result.Payout = payout
		result.FeeQuote = in.quote
		effects.released = true
		effects.netAmount = payout.AmountGhs
		effects.payoutID = payout.ID

	case models.TransactionStatusPartialSettled:
		if err := s.settlePartially(tx, txn, in); err != nil {
			return nil, nil, err
		}
		result.FeeQuote = in.quote
	}

	if from == models.TransactionStatusDisputed {
		if err := s.withdrawOpenDispute(tx, txn, in.actor, now); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.SaveTransaction(txn); err != nil {
		return nil, nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	diff := statusDiff(string(from), string(in.target))
	for k, v := range in.cause {
		diff[k] = v
	}
	if err := s.audit.Record(tx, EntityTransaction, txn.ID, in.actor, ActionStatusChange, diff); err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txn.ID,
		"from":           from,
		"to":             in.target,
		"actor_type":     in.actor.Type,
		"actor_id":       in.actor.UserID,
	}).Info("Transaction status changed")

	return result, effects, nil
}

func (s *EscrowService) openDispute(tx repositories.Tx, txn *models.Transaction, in transitionInput) (*models.Dispute, error) {
	if _, err := tx.FindOpenDispute(txn.ID); err == nil {
		return nil, ErrDisputeAlreadyOpen
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check open disputes: %w", err)
	}

	dispute := &models.Dispute{
		TransactionID: txn.ID,
		Status:        models.DisputeStatusOpen,
		RaisedByID:    in.disputeBy,
		Summary:       in.summary,
		EvidenceURLs:  in.evidence,
	}
	if err := tx.CreateDispute(dispute); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDisputeAlreadyOpen
		}
		return nil, fmt.Errorf("failed to create dispute: %w", err)
	}

	if err := s.audit.Record(tx, EntityDispute, dispute.ID, in.actor, ActionDisputeOpened, models.JSONB{
		"transaction_id": txn.ID.String(),
		"status":         string(dispute.Status),
	}); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *EscrowService) release(tx repositories.Tx, txn *models.Transaction, in transitionInput) (*models.PayoutRecord, error) {
	if in.quote == nil {
		return nil, errors.New("release requires a fee quote")
	}
	q := in.quote
	if q.SellerFeeAmount+q.SellerNetAmount != txn.AgreedPriceGhs {
		return nil, fmt.Errorf("%w: quote does not cover the agreed price", ErrInvalidFeeInput)
	}

	fee, net := q.SellerFeeAmount, q.SellerNetAmount
	txn.PlatformFeeGhs = &fee
	txn.SellerNetGhs = &net

	payout := &models.PayoutRecord{
		TransactionID: txn.ID,
		PayeeUserID:   txn.SellerID,
		AmountGhs:     net,
		FeesGhs:       fee,
		Status:        models.PayoutStatusPending,
	}
	if err := tx.CreatePayout(payout); err != nil {
		return nil, fmt.Errorf("failed to create payout record: %w", err)
	}

	if err := tx.SetListingStatus(txn.ListingID, models.ListingStatusSold); err != nil {
		return nil, fmt.Errorf("failed to mark listing sold: %w", err)
	}

	breakdown := q.Breakdown()
	breakdown["agreed_price_ghs"] = txn.AgreedPriceGhs
	breakdown["settlement"] = "FULL"
	breakdown["payout_id"] = payout.ID.String()
	if err := s.audit.Record(tx, EntityTransaction, txn.ID, in.actor, ActionFeesCollected, breakdown); err != nil {
		return nil, err
	}

	if err := s.audit.Record(tx, EntityPayout, payout.ID, in.actor, ActionPayoutCreated, models.JSONB{
		"transaction_id": txn.ID.String(),
		"amount_ghs":     payout.AmountGhs,
		"status":         string(payout.Status),
	}); err != nil {
		return nil, err
	}

	return payout, nil
}

func (s *EscrowService) settlePartially(tx repositories.Tx, txn *models.Transaction, in transitionInput) error {
	if in.quote == nil || !in.quote.BuyerShare.IsPositive() {
		return ErrInvalidSplit
	}
	q := in.quote
	if q.SellerFeeAmount+q.SellerNetAmount+q.BuyerRefundAmount != txn.AgreedPriceGhs {
		return fmt.Errorf("%w: split does not cover the agreed price", ErrInvalidFeeInput)
	}

	fee, net, refund := q.SellerFeeAmount, q.SellerNetAmount, q.BuyerRefundAmount
	txn.PlatformFeeGhs = &fee
	txn.SellerNetGhs = &net
	txn.BuyerRefundGhs = &refund

	breakdown := q.Breakdown()
	breakdown["agreed_price_ghs"] = txn.AgreedPriceGhs
	breakdown["settlement"] = "PARTIAL"
	return s.audit.Record(tx, EntityTransaction, txn.ID, in.actor, ActionFeesCollected, breakdown)
}

// withdrawOpenDispute closes a dispute that is still open when the
// transaction leaves DISPUTED by party request.
func (s *EscrowService) withdrawOpenDispute(tx repositories.Tx, txn *models.Transaction, actor Actor, now time.Time) error {
	dispute, err := tx.FindOpenDispute(txn.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check open disputes: %w", err)
	}

	from := dispute.Status
	resolution := withdrawnResolution
	dispute.Status = models.DisputeStatusClosed
	dispute.Resolution = &resolution
	dispute.ResolvedAt = &now
	dispute.ResolvedByID = actor.UserID
	if err := tx.SaveDispute(dispute); err != nil {
		return fmt.Errorf("failed to close dispute: %w", err)
	}

	return s.audit.Record(tx, EntityDispute, dispute.ID, actor, ActionDisputeWithdrawn, models.JSONB{
		"from":           string(from),
		"to":             string(dispute.Status),
		"transaction_id": txn.ID.String(),
		"new_status":     string(txn.Status),
	})
}

func (s *EscrowService) afterCommit(ctx context.Context, effects *postCommit) {
	if effects == nil {
		return
	}
	if effects.disputed && s.notifier != nil {
		s.notifier.NotifyTransactionDisputed(ctx, effects.sellerID, effects.listingTitle)
	}
	if effects.released {
		if s.notifier != nil {
			s.notifier.NotifyTransactionReleased(ctx, effects.sellerID, effects.listingTitle, effects.netAmount)
		}
		if s.payouts != nil {
			s.payouts.HandoffAsync(effects.payoutID)
		}
	}
}

// GetTransaction returns a transaction to one of its parties or to staff.
func (s *EscrowService) GetTransaction(ctx context.Context, id, viewerID uuid.UUID, viewerIsStaff bool) (*models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, s.translateLoadError(err)
	}
	if !viewerIsStaff && !txn.IsParty(viewerID) {
		return nil, ErrForbidden
	}
	return txn, nil
}

// ListTransactions lists the viewer's transactions, or all of them for staff.
func (s *EscrowService) ListTransactions(ctx context.Context, viewerID uuid.UUID, viewerIsStaff bool, status models.TransactionStatus, limit, offset int) ([]models.Transaction, int64, error) {
	filter := repositories.TransactionFilter{Status: status, Limit: limit, Offset: offset}
	if !viewerIsStaff {
		filter.PartyID = &viewerID
	}
	return s.store.ListTransactions(ctx, filter)
}

// CanViewSellerTerms reports whether viewerID may see sellerID's fee terms:
// the seller, staff, or a buyer with a transaction from that seller.
func (s *EscrowService) CanViewSellerTerms(ctx context.Context, viewerID uuid.UUID, viewerIsStaff bool, sellerID uuid.UUID) (bool, error) {
	if viewerIsStaff || viewerID == sellerID {
		return true, nil
	}
	_, total, err := s.store.ListTransactions(ctx, repositories.TransactionFilter{
		PartyID:  &viewerID,
		SellerID: &sellerID,
		Limit:    1,
	})
	if err != nil {
		return false, err
	}
	return total > 0, nil
}
