package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/api/middleware"
	"github.com/coupondrop/coupon-distribution-service/internal/fingerprint"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
	"github.com/coupondrop/coupon-distribution-service/internal/service"
)

type ClaimedCoupon struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ClaimResponse struct {
	Message string        `json:"message"`
	Coupon  ClaimedCoupon `json:"coupon"`
}

type ExhaustedResponse struct {
	Message string            `json:"message"`
	Details models.PoolCounts `json:"details"`
}

type CooldownResponse struct {
	Message    string `json:"message"`
	RetryAfter string `json:"retryAfter,omitempty"`
}

type ClaimHandler struct {
	claims *service.ClaimService
	fp     *fingerprint.Generator
}

func NewClaimHandler(claims *service.ClaimService, fp *fingerprint.Generator) *ClaimHandler {
	return &ClaimHandler{claims: claims, fp: fp}
}

// Claim handles POST /api/coupons/claim. No body; identity comes from the
// fingerprint cookie and transport headers.
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	fp, minted := h.fp.FromRequest(r)
	if minted {
		h.fp.SetCookie(w, fp)
	}
	ip := middleware.ClientIP(r)

	coupon, _, err := h.claims.Claim(r.Context(), fp, ip)
	if err != nil {
		h.writeClaimError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ClaimResponse{
		Message: "Coupon claimed successfully",
		Coupon: ClaimedCoupon{
			Code:        coupon.Code,
			Description: coupon.Description,
		},
	})
}

func (h *ClaimHandler) writeClaimError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *service.CooldownError
	switch {
	case errors.As(err, &cooldown):
		resp := CooldownResponse{
			Message: "You have already claimed a coupon with this device. Please try again later.",
		}
		if !cooldown.RetryAfter.IsZero() {
			resp.RetryAfter = cooldown.RetryAfter.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusTooManyRequests, resp)

	case errors.Is(err, service.ErrNoCouponsAvailable):
		counts, cerr := h.claims.PoolCounts(r.Context())
		if cerr != nil {
			slog.Error("pool counts failed", "error", cerr)
		}
		writeJSON(w, http.StatusNotFound, ExhaustedResponse{
			Message: "No coupons available at this time",
			Details: counts,
		})

	default:
		slog.Error("claim failed", "error", err)
		serverError(w)
	}
}
