package wager

import (
	"errors"
	"fmt"

	"github.com/Somebody914/Wager-Bot/internal/store"
)

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrNotFound        = errors.New("wager_not_found")
	ErrOwnWager        = errors.New("cannot_accept_own_wager")
	ErrNotParticipant  = errors.New("not_a_participant")
	ErrAlreadyReady    = errors.New("already_ready")
	ErrSelfConfirm     = errors.New("submitter_cannot_confirm")
	ErrSelfVerdict     = errors.New("winner_not_participant")
	ErrAlreadyAccepted = errors.New("wager_already_accepted")
	ErrRosterFull      = errors.New("roster_side_full")
	ErrAlreadyJoined   = errors.New("already_joined")
	ErrNotCreator      = errors.New("not_the_creator")
	ErrProofRequired   = errors.New("proof_required")

	// ErrClaimContradicted rejects a win claim whose verified result names
	// the other side.
	ErrClaimContradicted = errors.New("claim_contradicts_verified_result")
)

// WrongStatusError reports an operation attempted outside its legal source
// states, naming the state the wager is actually in.
type WrongStatusError struct {
	Operation string
	Current   store.WagerStatus
	Allowed   []store.WagerStatus
}

func (e *WrongStatusError) Error() string {
	return fmt.Sprintf("wrong_status: %s not allowed from %s", e.Operation, e.Current)
}

// ValidationError carries a field-level message for the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid_request: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
