package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	tonaddress "github.com/xssnick/tonutils-go/address"

	"github.com/tonbound/sbtid-verifier/internal/observability/metrics"
	"github.com/tonbound/sbtid-verifier/internal/ton"
	"github.com/tonbound/sbtid-verifier/internal/toncenter"
)

// itemAddressMethod is the collection get-method that computes the item
// address for an index. The derivation formula is contract-defined, so
// the service asks the contract instead of re-deriving locally.
const itemAddressMethod = "get_nft_address_by_index"

// maxIdentity is the largest index the get-method accepts (unsigned
// 256-bit).
var maxIdentity = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Retry defaults. Only transport failures are retried; the total wall
// clock is bounded by per-call timeouts plus the backoff sum.
const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 250 * time.Millisecond
	defaultBackoffCap  = 2 * time.Second
)

// GetMethodCaller defines the contract-call operations the domain needs.
type GetMethodCaller interface {
	RunGetMethod(ctx context.Context, address, method string, args ...toncenter.Arg) (*toncenter.GetMethodResult, error)
}

// AccountStateReader defines the account-info lookup the domain needs.
type AccountStateReader interface {
	GetAddressInformation(ctx context.Context, address string) (*toncenter.AccountInfo, error)
}

type service struct {
	collection ton.Address
	caller     GetMethodCaller
	accounts   AccountStateReader
	logger     *slog.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// Option configures the verification service.
type Option func(*service)

// WithMaxAttempts sets the attempt cap for transient failures.
func WithMaxAttempts(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and cap of the exponential retry backoff.
func WithBackoff(base, capped time.Duration) Option {
	return func(s *service) {
		if base > 0 {
			s.backoffBase = base
		}
		if capped > 0 {
			s.backoffCap = capped
		}
	}
}

// NewService creates a new verification service bound to one collection
// contract.
func NewService(collection ton.Address, caller GetMethodCaller, accounts AccountStateReader, logger *slog.Logger, opts ...Option) *service {
	s := &service{
		collection:  collection,
		caller:      caller,
		accounts:    accounts,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ValidateIdentity checks that an identity fits the index width of the
// collection get-method. Called before any network round trip.
func ValidateIdentity(identity *big.Int) error {
	if identity == nil {
		return fmt.Errorf("%w: missing", ErrInvalidIdentity)
	}
	if identity.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s", ErrInvalidIdentity, identity)
	}
	if identity.Cmp(maxIdentity) > 0 {
		return fmt.Errorf("%w: %s exceeds the contract index width", ErrInvalidIdentity, identity)
	}
	return nil
}

// Verify decides whether the given identity has a paid, deployed item in
// the collection. Transport failures are retried with exponential
// backoff; once attempts are exhausted the call fails with
// *UnavailableError rather than reporting "not paid" for an unknown
// status.
func (s *service) Verify(ctx context.Context, identity *big.Int) (*Result, error) {
	if err := ValidateIdentity(identity); err != nil {
		metrics.RecordVerification("error")
		return nil, err
	}

	checkID := uuid.NewString()
	logger := s.logger.With("check_id", checkID, "identity", identity.String())

	backoff := s.backoffBase
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.verifyOnce(ctx, checkID, identity)
		if err == nil {
			decision := "not_paid"
			if result.Paid {
				decision = "paid"
			}
			metrics.RecordVerification(decision)
			logger.Info("verification complete",
				"status", result.Status,
				"paid", result.Paid,
				"item_address", result.ItemAddress,
				"attempt", attempt,
			)
			return result, nil
		}
		if !isTransient(err) {
			metrics.RecordVerification("error")
			return nil, err
		}
		lastErr = err
		logger.Warn("transient failure, will retry", "attempt", attempt, "error", err)

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			metrics.RecordVerification("unavailable")
			return nil, &UnavailableError{Attempts: attempt, Err: ctx.Err()}
		}
		backoff *= 2
		if backoff > s.backoffCap {
			backoff = s.backoffCap
		}
	}

	metrics.RecordVerification("unavailable")
	return nil, &UnavailableError{Attempts: s.maxAttempts, Err: lastErr}
}

func (s *service) verifyOnce(ctx context.Context, checkID string, identity *big.Int) (*Result, error) {
	item, err := s.DeriveItemAddress(ctx, identity)
	if err != nil {
		return nil, err
	}

	result := &Result{
		CheckID:  checkID,
		Identity: identity.String(),
	}

	// A null or zero item address means the collection never minted this
	// index; there is no account to look up.
	if item.IsZero() {
		result.Status = StatusNonExistent
		result.Diagnostic = "collection reports no item for this identity"
		return result, nil
	}
	result.ItemAddress = item.String()

	status, err := s.AccountStatus(ctx, item)
	if err != nil {
		return nil, err
	}
	result.Status = status
	result.Paid = status == StatusActive

	switch status {
	case StatusActive:
		result.Diagnostic = "item account is deployed and active"
	case StatusFrozen:
		result.Diagnostic = "item account exists but is frozen"
	case StatusUnknown:
		result.Diagnostic = "ledger reported an unrecognized account state"
	default:
		result.Diagnostic = "item account has not been deployed"
	}
	return result, nil
}

// DeriveItemAddress asks the collection contract for the item address
// bound to an identity. A DecodeError from the call layer is reclassified
// as ErrProtocolMismatch: the contract answered, but not like a
// collection.
func (s *service) DeriveItemAddress(ctx context.Context, identity *big.Int) (ton.Address, error) {
	if err := ValidateIdentity(identity); err != nil {
		return ton.Address{}, err
	}

	res, err := s.caller.RunGetMethod(ctx, s.collection.String(), itemAddressMethod, toncenter.NumArg(identity))
	if err != nil {
		var de *toncenter.DecodeError
		if errors.As(err, &de) {
			return ton.Address{}, fmt.Errorf("%w: %v", ErrProtocolMismatch, err)
		}
		return ton.Address{}, err
	}

	return itemAddressFromStack(res.Stack)
}

func itemAddressFromStack(stack []toncenter.StackValue) (ton.Address, error) {
	if len(stack) == 0 {
		return ton.Address{}, fmt.Errorf("%w: empty result stack", ErrProtocolMismatch)
	}

	v := stack[0]
	if v.IsNull() {
		return ton.Address{}, nil
	}

	c, err := v.Cell()
	if err != nil {
		return ton.Address{}, fmt.Errorf("%w: %v", ErrProtocolMismatch, err)
	}
	addr, err := c.BeginParse().LoadAddr()
	if err != nil {
		return ton.Address{}, fmt.Errorf("%w: result cell does not hold an address", ErrProtocolMismatch)
	}
	if addr.Type() != tonaddress.StdAddress {
		// addr_none: index never minted.
		return ton.Address{}, nil
	}
	if len(addr.Data()) != ton.HashLen {
		return ton.Address{}, fmt.Errorf("%w: item address hash has %d bytes", ErrProtocolMismatch, len(addr.Data()))
	}

	var hash [ton.HashLen]byte
	copy(hash[:], addr.Data())
	item, err := ton.NewAddress(int8(addr.Workchain()), hash)
	if err != nil {
		return ton.Address{}, fmt.Errorf("%w: %v", ErrProtocolMismatch, err)
	}
	return item, nil
}

// AccountStatus reads the current ledger state of an address and maps it
// to the status enumeration. Unfamiliar state strings map to
// StatusUnknown instead of failing, to stay compatible with ledger
// changes.
func (s *service) AccountStatus(ctx context.Context, addr ton.Address) (AccountStatus, error) {
	info, err := s.accounts.GetAddressInformation(ctx, addr.String())
	if err != nil {
		return StatusUnknown, err
	}
	status := classifyState(info.State)
	if status == StatusUnknown {
		s.logger.Warn("unrecognized account state", "state", info.State, "address", addr.String())
	}
	return status, nil
}

func classifyState(state string) AccountStatus {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "active":
		return StatusActive
	case "uninitialized", "uninit":
		return StatusUninitialized
	case "frozen":
		return StatusFrozen
	case "nonexist", "nonexistent", "empty":
		return StatusNonExistent
	default:
		return StatusUnknown
	}
}

func isTransient(err error) bool {
	var te *toncenter.TransportError
	return errors.As(err, &te)
}
