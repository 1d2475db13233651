package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coupondrop/coupon-distribution-service/internal/models"
	"github.com/coupondrop/coupon-distribution-service/internal/service"
)

// --- Request / Response DTOs ---

type CreateCouponRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type BatchCreateRequest struct {
	Coupons []CreateCouponRequest `json:"coupons"`
}

type BatchCreateResponse struct {
	Message           string `json:"message"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
}

type UpdateCouponRequest struct {
	Code        *string `json:"code"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

type TestCouponsRequest struct {
	Count int `json:"count"`
}

// --- Handler ---

type CouponHandler struct {
	coupons *service.CouponService
}

func NewCouponHandler(coupons *service.CouponService) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

// List handles GET /api/coupons (admin).
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		slog.Error("list coupons failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusOK, coupons)
}

// Get handles GET /api/coupons/{id} (admin), returning claim info when claimed.
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	detail, err := h.coupons.GetDetail(r.Context(), id)
	if err != nil {
		h.writeCouponError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Create handles POST /api/coupons (admin).
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		writeMessage(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	coupon, err := h.coupons.Create(r.Context(), req.Code, req.Description, isActive)
	if err != nil {
		h.writeCouponError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Coupon created successfully",
		"coupon":  coupon,
	})
}

// CreateBatch handles POST /api/coupons/batch (admin). Duplicate codes,
// in-batch or already stored, are skipped and counted.
func (h *CouponHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Coupons) == 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid coupons data")
		return
	}

	batch := make([]models.Coupon, 0, len(req.Coupons))
	for _, c := range req.Coupons {
		isActive := true
		if c.IsActive != nil {
			isActive = *c.IsActive
		}
		batch = append(batch, models.Coupon{
			Code:        c.Code,
			Description: c.Description,
			IsActive:    isActive,
		})
	}

	created, skipped, err := h.coupons.CreateBatch(r.Context(), batch)
	if err != nil {
		if errors.Is(err, service.ErrCodeExists) {
			writeMessage(w, http.StatusBadRequest, "All coupon codes already exist")
			return
		}
		slog.Error("batch create failed", "error", err)
		serverError(w)
		return
	}

	writeJSON(w, http.StatusCreated, BatchCreateResponse{
		Message:           fmt.Sprintf("%d coupons created successfully", created),
		DuplicatesSkipped: skipped,
	})
}

// Update handles PUT /api/coupons/{id} (admin).
func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	var req UpdateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coupon, err := h.coupons.Update(r.Context(), id, req.Code, req.Description, req.IsActive)
	if err != nil {
		h.writeCouponError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Coupon updated successfully",
		"coupon":  coupon,
	})
}

// Delete handles DELETE /api/coupons/{id} (admin). Claimed coupons are
// refused.
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	if err := h.coupons.Delete(r.Context(), id); err != nil {
		h.writeCouponError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Coupon deleted successfully")
}

// CreateTestCoupons handles POST /api/coupons/test-coupons (admin).
func (h *CouponHandler) CreateTestCoupons(w http.ResponseWriter, r *http.Request) {
	req := TestCouponsRequest{Count: 5}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	coupons, err := h.coupons.GenerateTestCoupons(r.Context(), req.Count)
	if err != nil {
		slog.Error("generate test coupons failed", "error", err)
		serverError(w)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": fmt.Sprintf("%d test coupons created successfully", len(coupons)),
		"coupons": coupons,
	})
}

func (h *CouponHandler) writeCouponError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		writeMessage(w, http.StatusNotFound, "Coupon not found")
	case errors.Is(err, service.ErrCodeExists):
		writeMessage(w, http.StatusBadRequest, "Coupon code already exists")
	case errors.Is(err, service.ErrCouponClaimed):
		writeMessage(w, http.StatusBadRequest, "Cannot delete a claimed coupon")
	case errors.Is(err, service.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Invalid request")
	default:
		slog.Error("coupon operation failed", "error", err)
		serverError(w)
	}
}

func couponID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid coupon id")
		return 0, false
	}
	return id, true
}
