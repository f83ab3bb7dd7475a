// Package transport provides HTTP handlers for the verification domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tonbound/sbtid-verifier/internal/toncenter"
	"github.com/tonbound/sbtid-verifier/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	Verify(ctx context.Context, identity *big.Int) (*domain.Result, error)
}

// Handler handles HTTP requests for verification.
type Handler struct {
	svc Service
}

// NewHandler creates a new verification HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the verification routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/verify", h.handleVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	identity, ok := new(big.Int).SetString(req.Identity, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_IDENTITY", "identity must be a decimal integer")
		return
	}

	result, err := h.svc.Verify(r.Context(), identity)
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeVerifyError(w http.ResponseWriter, err error) {
	var unavailable *domain.UnavailableError
	var remote *toncenter.RemoteError
	var decode *toncenter.DecodeError

	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, "INVALID_IDENTITY", err.Error())
	case errors.As(err, &unavailable):
		// Status unknown is not "not paid": tell the caller to retry.
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "VERIFICATION_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrProtocolMismatch):
		writeError(w, http.StatusBadGateway, "PROTOCOL_MISMATCH", err.Error())
	case errors.As(err, &remote):
		writeError(w, http.StatusBadGateway, "REMOTE_ERROR", err.Error())
	case errors.As(err, &decode):
		// Upstream answered with an unreadable payload; structural, not ours.
		writeError(w, http.StatusBadGateway, "DECODE_ERROR", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify payment")
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
