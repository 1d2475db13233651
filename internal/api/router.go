package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/coupondrop/coupon-distribution-service/internal/api/handlers"
	"github.com/coupondrop/coupon-distribution-service/internal/api/middleware"
	"github.com/coupondrop/coupon-distribution-service/internal/auth"
	"github.com/coupondrop/coupon-distribution-service/internal/cache"
	"github.com/coupondrop/coupon-distribution-service/internal/config"
	"github.com/coupondrop/coupon-distribution-service/internal/fingerprint"
	"github.com/coupondrop/coupon-distribution-service/internal/repository"
	"github.com/coupondrop/coupon-distribution-service/internal/service"
)

// NewRouter wires repositories, services and handlers into the HTTP router.
func NewRouter(db *sql.DB, cfg *config.Config) http.Handler {
	couponRepo := repository.NewCouponRepo(db)
	claimRepo := repository.NewClaimRepo(db)
	adminRepo := repository.NewAdminRepo(db)

	stats := cache.NewPoolStats(5 * time.Second)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	fp := fingerprint.NewGenerator(cfg)

	claimSvc := service.NewClaimService(db, couponRepo, claimRepo, stats, cfg)
	couponSvc := service.NewCouponService(couponRepo, claimRepo, stats)
	adminSvc := service.NewAdminService(adminRepo, tokens)

	claimHandler := handlers.NewClaimHandler(claimSvc, fp)
	couponHandler := handlers.NewCouponHandler(couponSvc)
	claimsHandler := handlers.NewClaimsHandler(claimRepo)
	authHandler := handlers.NewAuthHandler(adminSvc, cfg)

	requireAdmin := middleware.RequireAdmin(tokens)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(httprate.Limit(
		cfg.GlobalRateLimit,
		cfg.GlobalRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
	))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/setup", authHandler.Setup)
		r.With(requireAdmin).Get("/check", authHandler.Check)
	})

	r.Route("/api/coupons", func(r chi.Router) {
		// public claim endpoint, with its own tighter rate limit
		r.With(httprate.Limit(
			cfg.ClaimRateLimit,
			cfg.ClaimRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
		)).Post("/claim", claimHandler.Claim)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", couponHandler.List)
			r.Post("/", couponHandler.Create)
			r.Post("/batch", couponHandler.CreateBatch)
			r.Post("/test-coupons", couponHandler.CreateTestCoupons)
			r.Get("/{id}", couponHandler.Get)
			r.Put("/{id}", couponHandler.Update)
			r.Delete("/{id}", couponHandler.Delete)
		})
	})

	r.Route("/api/claims", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", claimsHandler.List)
		r.Get("/stats", claimsHandler.Stats)
		r.Get("/ip/{ipAddress}", claimsHandler.ListByIP)
		r.Get("/browser/{fingerprint}", claimsHandler.ListByFingerprint)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
