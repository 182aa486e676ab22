// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/javajoker/land-escrow-backend/internal/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrDisputeNotFound     = fmt.Errorf("dispute %w", ErrNotFound)
	ErrListingNotFound     = fmt.Errorf("listing %w", ErrNotFound)

	ErrForbidden            = errors.New("actor is not allowed to perform this action")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAlreadyInTargetState = errors.New("already in target state")
	ErrInvalidFeeInput      = errors.New("invalid fee input")
	ErrDisputeAlreadyOpen   = errors.New("transaction already has an open dispute")
	ErrInvalidSplit         = errors.New("buyer share must be between 0 and 1 exclusive")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrListingUnavailable   = errors.New("listing is not available for a new transaction")
)

// TransitionError reports a rejected move between two statuses. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func transactionTransitionError(from, to models.TransactionStatus) error {
	return &TransitionError{Entity: "transaction", From: string(from), To: string(to)}
}

func disputeTransitionError(from, to models.DisputeStatus) error {
	return &TransitionError{Entity: "dispute", From: string(from), To: string(to)}
}
