// internal/services/dispute_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/land-escrow-backend/internal/models"
	"github.com/javajoker/land-escrow-backend/internal/repositories"
)

// DisputeService runs the dispute lifecycle and applies reviewer decisions to
// the disputed transaction.
type DisputeService struct {
	store  repositories.Store
	escrow *EscrowService
	fees   *FeeService
	audit  *AuditService
}

func NewDisputeService(store repositories.Store, escrow *EscrowService, fees *FeeService, audit *AuditService) *DisputeService {
	return &DisputeService{
		store:  store,
		escrow: escrow,
		fees:   fees,
		audit:  audit,
	}
}

type RaiseDisputeRequest struct {
	TransactionID uuid.UUID `json:"-"`
	ActorID       uuid.UUID `json:"-"`
	Summary       string    `json:"summary" validate:"required,min=10,max=4000"`
	EvidenceURLs  []string  `json:"evidence_urls,omitempty" validate:"max=20,dive,url"`
}

type ResolveDisputeRequest struct {
	DisputeID  uuid.UUID            `json:"-"`
	Status     models.DisputeStatus `json:"status" validate:"required,dispute_status"`
	Resolution string               `json:"resolution" validate:"max=4000"`
	ResolverID uuid.UUID            `json:"-"`
	BuyerShare *decimal.Decimal     `json:"buyer_share,omitempty"`
}

type ResolveDisputeResult struct {
	Dispute              *models.Dispute      `json:"dispute"`
	Transaction          *models.Transaction  `json:"transaction"`
	Payout               *models.PayoutRecord `json:"payout,omitempty"`
	FeeQuote             *FeeQuote            `json:"fee_quote,omitempty"`
	AlreadyInTargetState bool                 `json:"already_in_target_state"`
}

// RaiseDispute moves the transaction to DISPUTED on the buyer's behalf and
// returns the dispute it opened.
func (s *DisputeService) RaiseDispute(ctx context.Context, req RaiseDisputeRequest) (*models.Dispute, error) {
	result, err := s.escrow.RequestTransition(ctx, TransitionRequest{
		TransactionID: req.TransactionID,
		Status:        models.TransactionStatusDisputed,
		ActorID:       req.ActorID,
		Summary:       req.Summary,
		EvidenceURLs:  req.EvidenceURLs,
	})
	if errors.Is(err, ErrAlreadyInTargetState) {
		return nil, ErrDisputeAlreadyOpen
	}
	if err != nil {
		return nil, err
	}
	return result.Dispute, nil
}

// ResolveDispute applies a reviewer's decision. Resolutions drive the
// transaction: RESOLVED_BUYER refunds, RESOLVED_SELLER releases through
// READY_TO_RELEASE, RESOLVED_SPLIT settles partially at req.BuyerShare.
func (s *DisputeService) ResolveDispute(ctx context.Context, req ResolveDisputeRequest) (*ResolveDisputeResult, error) {
	var (
		result *ResolveDisputeResult
		err    error
	)
	for attempt := 0; attempt < maxSnapshotAttempts; attempt++ {
		result, err = s.resolveDispute(ctx, req)
		if !errors.Is(err, errStaleSnapshot) {
			return result, err
		}
	}
	return nil, fmt.Errorf("dispute %s kept changing: %w", req.DisputeID, err)
}

func (s *DisputeService) resolveDispute(ctx context.Context, req ResolveDisputeRequest) (*ResolveDisputeResult, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown dispute status %q", ErrInvalidRequest, req.Status)
	}

	resolver, err := s.store.GetUser(ctx, req.ResolverID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to load resolver: %w", err)
	}
	if !resolver.Role.IsStaff() {
		return nil, ErrForbidden
	}

	snapshot, err := s.store.GetDispute(ctx, req.DisputeID)
	if err != nil {
		return nil, s.translateLoadError(err)
	}

	var quote *FeeQuote
	if CanTransitionDispute(snapshot.Status, req.Status) {
		quote, err = s.priceResolution(ctx, snapshot, req)
		if err != nil {
			return nil, err
		}
	}

	var (
		result  *ResolveDisputeResult
		effects *postCommit
	)
	err = s.store.WithinTransaction(ctx, func(tx repositories.Tx) error {
		// Transaction before dispute, the same order RequestTransition takes.
		txn, err := tx.LockTransaction(snapshot.TransactionID)
		if err != nil {
			return s.escrow.translateLoadError(err)
		}
		dispute, err := tx.LockDispute(req.DisputeID)
		if err != nil {
			return s.translateLoadError(err)
		}

		if dispute.Status == req.Status {
			result = &ResolveDisputeResult{Dispute: dispute, Transaction: txn, AlreadyInTargetState: true}
			return nil
		}
		if !CanTransitionDispute(dispute.Status, req.Status) {
			return disputeTransitionError(dispute.Status, req.Status)
		}
		if req.Status.IsResolution() && req.Status != models.DisputeStatusResolvedBuyer && quote == nil {
			return errStaleSnapshot
		}

		from := dispute.Status
		now := s.escrow.now()
		dispute.Status = req.Status
		if req.Resolution != "" {
			resolution := req.Resolution
			dispute.Resolution = &resolution
		}
		if req.Status.IsResolution() {
			dispute.ResolvedAt = &now
			dispute.ResolvedByID = &resolver.ID
		}
		if req.Status == models.DisputeStatusResolvedSplit {
			share := quote.BuyerShare
			dispute.BuyerShare = &share
		}
		if err := tx.SaveDispute(dispute); err != nil {
			return fmt.Errorf("failed to save dispute: %w", err)
		}

		if err := s.audit.Record(tx, EntityDispute, dispute.ID, UserActor(resolver.ID), ActionStatusChange+"_"+string(req.Status), models.JSONB{
			"from":           string(from),
			"to":             string(req.Status),
			"resolution":     req.Resolution,
			"transaction_id": txn.ID.String(),
		}); err != nil {
			return err
		}

		result = &ResolveDisputeResult{Dispute: dispute, Transaction: txn}

		cause := models.JSONB{
			"cause":      "dispute_resolution",
			"dispute_id": dispute.ID.String(),
		}
		var hops []models.TransactionStatus
		switch req.Status {
		case models.DisputeStatusResolvedBuyer:
			hops = []models.TransactionStatus{models.TransactionStatusRefunded}
		case models.DisputeStatusResolvedSeller:
			hops = []models.TransactionStatus{models.TransactionStatusReadyToRelease, models.TransactionStatusReleased}
		case models.DisputeStatusResolvedSplit:
			hops = []models.TransactionStatus{models.TransactionStatusPartialSettled}
		}

		for _, target := range hops {
			hop, hopEffects, err := s.escrow.applyTransition(tx, txn, transitionInput{
				target: target,
				actor:  SystemActor(),
				cause:  cause,
				quote:  quote,
			})
			if err != nil {
				return err
			}
			result.Transaction = hop.Transaction
			if hop.Payout != nil {
				result.Payout = hop.Payout
			}
			if hop.FeeQuote != nil {
				result.FeeQuote = hop.FeeQuote
			}
			effects = hopEffects
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyInTargetState {
		return result, ErrAlreadyInTargetState
	}

	logrus.WithFields(logrus.Fields{
		"dispute_id":     result.Dispute.ID,
		"transaction_id": result.Transaction.ID,
		"status":         result.Dispute.Status,
		"resolver_id":    resolver.ID,
	}).Info("Dispute updated by reviewer")

	s.escrow.afterCommit(ctx, effects)
	return result, nil
}

func (s *DisputeService) priceResolution(ctx context.Context, dispute *models.Dispute, req ResolveDisputeRequest) (*FeeQuote, error) {
	switch req.Status {
	case models.DisputeStatusResolvedSeller, models.DisputeStatusResolvedSplit:
	default:
		return nil, nil
	}

	txn, err := s.store.GetTransaction(ctx, dispute.TransactionID)
	if err != nil {
		return nil, s.escrow.translateLoadError(err)
	}

	if req.Status == models.DisputeStatusResolvedSeller {
		q, err := s.fees.Quote(ctx, txn.SellerID, txn.AgreedPriceGhs)
		if err != nil {
			return nil, err
		}
		return &q, nil
	}

	if req.BuyerShare == nil {
		return nil, ErrInvalidSplit
	}
	q, err := s.fees.QuoteSplit(ctx, txn.SellerID, txn.AgreedPriceGhs, *req.BuyerShare)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *DisputeService) translateLoadError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrDisputeNotFound
	}
	return fmt.Errorf("failed to load dispute: %w", err)
}

// GetDispute returns a dispute to a party of its transaction or to staff.
func (s *DisputeService) GetDispute(ctx context.Context, id, viewerID uuid.UUID, viewerIsStaff bool) (*models.Dispute, error) {
	dispute, err := s.store.GetDispute(ctx, id)
	if err != nil {
		return nil, s.translateLoadError(err)
	}
	if _, err := s.escrow.GetTransaction(ctx, dispute.TransactionID, viewerID, viewerIsStaff); err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *DisputeService) ListDisputes(ctx context.Context, transactionID, viewerID uuid.UUID, viewerIsStaff bool) ([]models.Dispute, error) {
	if _, err := s.escrow.GetTransaction(ctx, transactionID, viewerID, viewerIsStaff); err != nil {
		return nil, err
	}
	disputes, err := s.store.ListDisputes(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	return disputes, nil
}
