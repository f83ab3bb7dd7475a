package telegram

import (
	"errors"

	"github.com/tonbound/sbtid-verifier/internal/verification/domain"
)

// OutcomeText renders a verification answer for the user. Exactly three
// outcomes exist: paid, not paid, and unavailable. An unavailable check
// must never read like a missing payment.
func OutcomeText(result *domain.Result, err error) string {
	switch {
	case err == nil && result != nil && result.Paid:
		text := "✅ Payment confirmed. Your identity token is minted and active."
		if result.ItemAddress != "" {
			text += "\n\nToken address:\n" + result.ItemAddress
		}
		return text

	case err == nil && result != nil:
		if result.Status == domain.StatusFrozen {
			return "ℹ️ Your identity token account exists but is frozen. Please contact support."
		}
		return "ℹ️ No payment found for your account yet. If you just paid, the mint can take a minute; try again shortly."

	case errors.Is(err, domain.ErrInvalidIdentity):
		return "⚠️ We could not read your account id. Please restart the bot with /start."

	default:
		return "⚠️ Payment status is unavailable right now. This is not a verdict on your payment; please try again in a moment."
	}
}
