package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonbound/sbtid-verifier/internal/toncenter"
	"github.com/tonbound/sbtid-verifier/internal/verification/domain"
)

func TestOutcomeText_Paid(t *testing.T) {
	text := OutcomeText(&domain.Result{
		Status:      domain.StatusActive,
		Paid:        true,
		ItemAddress: "EQAnoK6z_ukjL4ryIR-e5JHFsQvstVY7_B5vk0J-y8j-Kfaz",
	}, nil)

	assert.Contains(t, text, "Payment confirmed")
	assert.Contains(t, text, "EQAnoK6z_ukjL4ryIR-e5JHFsQvstVY7_B5vk0J-y8j-Kfaz")
}

func TestOutcomeText_NotPaid(t *testing.T) {
	for _, status := range []domain.AccountStatus{
		domain.StatusNonExistent,
		domain.StatusUninitialized,
		domain.StatusUnknown,
	} {
		text := OutcomeText(&domain.Result{Status: status}, nil)
		assert.Contains(t, text, "No payment found", status)
		assert.NotContains(t, text, "unavailable", status)
	}
}

func TestOutcomeText_Frozen(t *testing.T) {
	text := OutcomeText(&domain.Result{Status: domain.StatusFrozen}, nil)
	assert.Contains(t, text, "frozen")
}

func TestOutcomeText_UnavailableIsNotNotPaid(t *testing.T) {
	errs := []error{
		&domain.UnavailableError{Attempts: 3, Err: errors.New("timeout")},
		&toncenter.RemoteError{ExitCode: 11, Message: "method not found"},
		domain.ErrProtocolMismatch,
		context.DeadlineExceeded,
	}
	for _, err := range errs {
		text := OutcomeText(nil, err)
		assert.Contains(t, text, "unavailable", err)
		assert.NotContains(t, text, "No payment found", err)
	}
}

func TestOutcomeText_InvalidIdentity(t *testing.T) {
	text := OutcomeText(nil, domain.ErrInvalidIdentity)
	assert.Contains(t, text, "/start")
}
