package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coupondrop/coupon-distribution-service/internal/repository"
)

// ClaimsHandler serves the admin-only ledger queries.
type ClaimsHandler struct {
	ledger *repository.ClaimRepo
}

func NewClaimsHandler(ledger *repository.ClaimRepo) *ClaimsHandler {
	return &ClaimsHandler{ledger: ledger}
}

// List handles GET /api/claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := h.ledger.ListAll(r.Context())
	if err != nil {
		slog.Error("list claims failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// ListByIP handles GET /api/claims/ip/{ipAddress}.
func (h *ClaimsHandler) ListByIP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.ledger.ListByIP(r.Context(), chi.URLParam(r, "ipAddress"))
	if err != nil {
		slog.Error("list claims by ip failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// ListByFingerprint handles GET /api/claims/browser/{fingerprint}.
func (h *ClaimsHandler) ListByFingerprint(w http.ResponseWriter, r *http.Request) {
	claims, err := h.ledger.ListByFingerprint(r.Context(), chi.URLParam(r, "fingerprint"))
	if err != nil {
		slog.Error("list claims by fingerprint failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// Stats handles GET /api/claims/stats.
func (h *ClaimsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context(), time.Now().UTC())
	if err != nil {
		slog.Error("claim stats failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
