package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/coupondrop/coupon-distribution-service/internal/auth"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
	"github.com/coupondrop/coupon-distribution-service/internal/repository"
)

var sampleCoupons = []models.Coupon{
	{Code: "SAVE10", Description: "10% off on your first purchase", IsActive: true},
	{Code: "SUMMER25", Description: "25% off on summer collection", IsActive: true},
	{Code: "FREESHIP", Description: "Free shipping on orders over $50", IsActive: true},
	{Code: "WELCOME15", Description: "15% discount for new customers", IsActive: true},
	{Code: "FLASH50", Description: "50% off flash sale (limited time)", IsActive: true},
	{Code: "HOLIDAY20", Description: "20% off for holiday season", IsActive: true},
	{Code: "LOYALTY30", Description: "30% off for loyal customers", IsActive: true},
	{Code: "BIRTHDAY25", Description: "25% off birthday special", IsActive: true},
	{Code: "APP15", Description: "15% off when ordering through our app", IsActive: true},
	{Code: "WEEKEND10", Description: "10% off weekend special", IsActive: true},
}

// runSeed inserts a default admin and sample coupons when the tables are
// empty. Intended for local development only.
func runSeed(ctx context.Context, conn *sql.DB) error {
	adminRepo := repository.NewAdminRepo(conn)
	couponRepo := repository.NewCouponRepo(conn)

	count, err := adminRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count == 0 {
		hash, err := auth.HashPassword("admin123")
		if err != nil {
			return err
		}
		if _, err := adminRepo.Insert(ctx, "admin", hash); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		slog.Info("admin account created", "username", "admin")
	} else {
		slog.Info("admin account already exists")
	}

	counts, err := couponRepo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count coupons: %w", err)
	}
	if counts.TotalCoupons == 0 {
		if _, err := couponRepo.InsertBatch(ctx, sampleCoupons); err != nil {
			return fmt.Errorf("insert sample coupons: %w", err)
		}
		slog.Info("sample coupons created", "count", len(sampleCoupons))
	} else {
		slog.Info("coupons already exist", "count", counts.TotalCoupons)
	}

	return nil
}
