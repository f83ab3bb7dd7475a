// Package domain contains the business logic for payment verification:
// deriving the item address bound to an identity, reading its ledger
// state, and turning both into a paid / not-paid decision.
package domain

import (
	"errors"
	"fmt"
)

// AccountStatus classifies the ledger state of a derived item address.
type AccountStatus string

const (
	// StatusActive means the item account is deployed and holds state.
	// This is the only status that counts as paid.
	StatusActive AccountStatus = "active"
	// StatusUninitialized means the address has been touched (e.g. funded)
	// but never deployed.
	StatusUninitialized AccountStatus = "uninitialized"
	// StatusFrozen means the account was deployed and later frozen.
	// Anomalous for an SBT item, surfaced in diagnostics, not an error.
	StatusFrozen AccountStatus = "frozen"
	// StatusNonExistent means the address was never seen on the ledger.
	StatusNonExistent AccountStatus = "nonexist"
	// StatusUnknown covers state strings this build does not recognize.
	StatusUnknown AccountStatus = "unknown"
)

// Result is the outcome of one verification. It is request-scoped and
// never cached; the ledger is re-queried on every check.
type Result struct {
	CheckID     string        `json:"checkId"`
	Identity    string        `json:"identity"`
	ItemAddress string        `json:"itemAddress,omitempty"`
	Status      AccountStatus `json:"status"`
	Paid        bool          `json:"paid"`
	Diagnostic  string        `json:"diagnostic,omitempty"`
}

// Common errors returned by the verification service.
var (
	// ErrInvalidIdentity rejects identities outside the index range the
	// collection contract accepts. Raised before any network call.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrProtocolMismatch means the configured collection answered the
	// get-method with something that is not an item address: it is not
	// behaving like an SBTID collection. Not retryable.
	ErrProtocolMismatch = errors.New("contract does not behave like an SBTID collection")
)

// UnavailableError is returned when every attempt failed on transport.
// The payment status is unknown, which is deliberately distinct from
// "not paid": callers must render it as "try again", never as a missing
// payment.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("verification unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
