package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coupondrop/coupon-distribution-service/internal/auth"
)

type contextKey string

const adminIDKey contextKey = "adminID"

const AdminCookieName = "adminToken"

// RequireAdmin guards admin routes. The token comes from the adminToken
// cookie or a Bearer Authorization header.
func RequireAdmin(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(AdminCookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
					token = strings.TrimPrefix(h, "Bearer ")
				}
			}
			if token == "" {
				unauthorized(w, "Authentication required")
				return
			}

			adminID, err := tokens.Verify(token)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), adminIDKey, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminID returns the authenticated admin's ID, or 0 outside the guard.
func AdminID(ctx context.Context) int64 {
	id, _ := ctx.Value(adminIDKey).(int64)
	return id
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
