// internal/services/transitions.go
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

var transactionEdges = map[models.TransactionStatus][]models.TransactionStatus{
	models.TransactionStatusCreated:            {models.TransactionStatusEscrowRequested},
	models.TransactionStatusEscrowRequested:    {models.TransactionStatusFunded},
	models.TransactionStatusFunded:             {models.TransactionStatusVerificationPeriod},
	models.TransactionStatusVerificationPeriod: {models.TransactionStatusReadyToRelease, models.TransactionStatusDisputed},
	models.TransactionStatusDisputed: {
		models.TransactionStatusReadyToRelease,
		models.TransactionStatusRefunded,
		models.TransactionStatusPartialSettled,
	},
	models.TransactionStatusReadyToRelease: {models.TransactionStatusReleased},
	models.TransactionStatusReleased:       {models.TransactionStatusClosed},
	models.TransactionStatusRefunded:       {models.TransactionStatusClosed},
	models.TransactionStatusPartialSettled: {models.TransactionStatusClosed},
}

var disputeEdges = map[models.DisputeStatus][]models.DisputeStatus{
	models.DisputeStatusOpen: {
		models.DisputeStatusUnderReview,
		models.DisputeStatusResolvedBuyer,
		models.DisputeStatusResolvedSeller,
		models.DisputeStatusResolvedSplit,
	},
	models.DisputeStatusUnderReview: {
		models.DisputeStatusResolvedBuyer,
		models.DisputeStatusResolvedSeller,
		models.DisputeStatusResolvedSplit,
	},
	models.DisputeStatusResolvedBuyer:  {models.DisputeStatusClosed},
	models.DisputeStatusResolvedSeller: {models.DisputeStatusClosed},
	models.DisputeStatusResolvedSplit:  {models.DisputeStatusClosed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to models.TransactionStatus) bool {
	for _, next := range transactionEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionDispute(from, to models.DisputeStatus) bool {
	for _, next := range disputeEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s models.TransactionStatus) []models.TransactionStatus {
	return append([]models.TransactionStatus(nil), transactionEdges[s]...)
}

// Party is the side of a transaction allowed to request a status.
type Party string

const (
	PartyBuyer  Party = "buyer"
	PartySeller Party = "seller"
	PartyEither Party = "either"
)

// RolePolicy decides which party may request each target status. Disputes are
// always the buyer's and releases always the seller's; the rest are
// configurable.
type RolePolicy struct {
	parties map[models.TransactionStatus]Party
}

var fixedParties = map[models.TransactionStatus]Party{
	models.TransactionStatusDisputed: PartyBuyer,
	models.TransactionStatusReleased: PartySeller,
}

// DefaultRolePolicy mirrors who acts at each step of a normal purchase.
func DefaultRolePolicy() RolePolicy {
	return RolePolicy{parties: map[models.TransactionStatus]Party{
		models.TransactionStatusEscrowRequested:    PartyEither,
		models.TransactionStatusFunded:             PartyBuyer,
		models.TransactionStatusVerificationPeriod: PartyEither,
		models.TransactionStatusDisputed:           PartyBuyer,
		models.TransactionStatusReadyToRelease:     PartyBuyer,
		models.TransactionStatusReleased:           PartySeller,
		models.TransactionStatusRefunded:           PartySeller,
		models.TransactionStatusPartialSettled:     PartyEither,
		models.TransactionStatusClosed:             PartyEither,
	}}
}

// NewRolePolicy applies overrides (status name -> buyer|seller|either) on top
// of the defaults. Overrides for fixed statuses are rejected.
func NewRolePolicy(overrides map[string]string) (RolePolicy, error) {
	policy := DefaultRolePolicy()
	for name, value := range overrides {
		status := models.TransactionStatus(name)
		if !status.Valid() {
			return RolePolicy{}, fmt.Errorf("unknown status %q in role policy", name)
		}
		if _, fixed := fixedParties[status]; fixed {
			return RolePolicy{}, fmt.Errorf("role for %s cannot be configured", name)
		}
		party := Party(value)
		switch party {
		case PartyBuyer, PartySeller, PartyEither:
		default:
			return RolePolicy{}, fmt.Errorf("invalid party %q for %s", value, name)
		}
		policy.parties[status] = party
	}
	return policy, nil
}

// PartyFor returns who may request target.
func (p RolePolicy) PartyFor(target models.TransactionStatus) Party {
	if party, ok := fixedParties[target]; ok {
		return party
	}
	if party, ok := p.parties[target]; ok {
		return party
	}
	return PartyEither
}

// Allows checks the actor against the parties of t for the target status.
func (p RolePolicy) Allows(t *models.Transaction, actorID uuid.UUID, target models.TransactionStatus) bool {
	switch p.PartyFor(target) {
	case PartyBuyer:
		return actorID == t.BuyerID
	case PartySeller:
		return actorID == t.SellerID
	default:
		return t.IsParty(actorID)
	}
}
