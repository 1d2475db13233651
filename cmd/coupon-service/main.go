package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/coupondrop/coupon-distribution-service/internal/api"
	"github.com/coupondrop/coupon-distribution-service/internal/config"
	"github.com/coupondrop/coupon-distribution-service/pkg/db"
)

func main() {
	seed := flag.Bool("seed", false, "insert sample coupons and a default admin, then exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	conn, err := db.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		slog.Error("db migrate", "error", err)
		os.Exit(1)
	}

	if *seed {
		if err := runSeed(context.Background(), conn); err != nil {
			slog.Error("seed", "error", err)
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(conn, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	slog.Info("starting coupon-service", "port", cfg.Port,
		"eligibility_key", cfg.EligibilityKey,
		"fingerprint_mode", cfg.FingerprintMode,
		"cooldown_policy", cfg.CooldownPolicy,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("listen", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	slog.Info("server stopped")
}
