package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/api/middleware"
	"github.com/coupondrop/coupon-distribution-service/internal/config"
	"github.com/coupondrop/coupon-distribution-service/internal/service"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	admins *service.AdminService
	cfg    *config.Config
}

func NewAuthHandler(admins *service.AdminService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{admins: admins, cfg: cfg}
}

// Login handles POST /api/auth/login. The token is set as an HTTP-only
// cookie and also returned in the body for header-based clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, token, err := h.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("login failed", "error", err)
		serverError(w)
		return
	}

	h.setSessionCookie(w, token, h.cfg.TokenTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"admin": map[string]any{
			"id":       admin.ID,
			"username": admin.Username,
		},
		"token": token,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -time.Second)
	writeMessage(w, http.StatusOK, "Logout successful")
}

// Check handles GET /api/auth/check behind the admin guard.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"isAuthenticated": true})
}

// Setup handles POST /api/auth/setup, creating the first admin account.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.admins.Setup(r.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminExists):
			writeMessage(w, http.StatusBadRequest, "Admin already exists")
		case errors.Is(err, service.ErrInvalidInput):
			writeMessage(w, http.StatusBadRequest, "Username and password are required")
		default:
			slog.Error("admin setup failed", "error", err)
			serverError(w)
		}
		return
	}
	writeMessage(w, http.StatusCreated, "Admin created successfully")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
