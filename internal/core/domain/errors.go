package domain

import (
	"errors"
	"fmt"
)

// Authorization errors: permanent; surfaced to the caller, never retried.
var (
	ErrNotOwner      = errors.New("not owner")
	ErrNotManager    = errors.New("not manager")
	ErrNotAuthorized = errors.New("not whitelisted")
)

// State errors: permanent; a rejected transition leaves state untouched.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownShipment   = errors.New("unknown shipment")
	ErrIndexOutOfRange   = errors.New("checkpoint index out of range")
)

// Funds errors: permanent for the attempt; the caller may resubmit with a
// corrected payment.
var (
	ErrInsufficientFee   = errors.New("insufficient fee")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)

// Reconciliation errors. ErrLedgerUnavailable is the only transient kind and
// is retried with backoff by the engine; an id conflict is never auto-resolved.
var (
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrRecordNotFound    = errors.New("mirror record not found")
	ErrDuplicateRecord   = errors.New("mirror record already exists")
)

var ErrInvalidPrincipal = errors.New("invalid principal address")

// Account errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// IDConflictError signals that the mirror store already holds a record for a
// ledger-assigned shipment id, produced by a different submission and carrying
// different core fields. The ledger id sequence is out of sync with the mirror
// (store reset, ledger redeploy); the engine never guesses which side wins, so
// both records are carried for operator review.
type IDConflictError struct {
	Existing MirrorRecord
	Incoming MirrorRecord
}

func (e *IDConflictError) Error() string {
	return fmt.Sprintf("mirror record conflict for shipment %d: existing tx %s, incoming tx %s",
		e.Existing.ShipmentID, e.Existing.SourceTxRef, e.Incoming.SourceTxRef)
}
