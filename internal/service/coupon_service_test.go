package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/cache"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
	"github.com/coupondrop/coupon-distribution-service/internal/repository"
	"github.com/coupondrop/coupon-distribution-service/internal/testutil"
)

func newCouponService(t *testing.T) (*CouponService, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewCouponService(
		repository.NewCouponRepo(db),
		repository.NewClaimRepo(db),
		cache.NewPoolStats(5*time.Second),
	)
	return svc, db
}

func TestCreateCoupon(t *testing.T) {
	svc, _ := newCouponService(t)
	ctx := context.Background()

	coupon, err := svc.Create(ctx, "SAVE10", "10% off", true)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if coupon.Code != "SAVE10" || !coupon.IsActive || coupon.IsClaimed {
		t.Errorf("unexpected coupon: %+v", coupon)
	}

	_, err = svc.Create(ctx, "SAVE10", "again", true)
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("duplicate code: expected ErrCodeExists, got %v", err)
	}

	_, err = svc.Create(ctx, "   ", "blank", true)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank code: expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBatchSkipsDuplicates(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	testutil.CreateTestCoupon(t, db, "EXISTING", time.Now())

	batch := []models.Coupon{
		{Code: "NEW1", Description: "one", IsActive: true},
		{Code: "NEW2", Description: "two", IsActive: true},
		{Code: "NEW1", Description: "in-batch duplicate", IsActive: true},
		{Code: "EXISTING", Description: "in-store duplicate", IsActive: true},
	}

	created, skipped, err := svc.CreateBatch(ctx, batch)
	if err != nil {
		t.Fatalf("batch create failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Errorf("store has %d coupons, want 3", total)
	}
}

func TestCreateBatchAllDuplicates(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	testutil.CreateTestCoupon(t, db, "DUP", time.Now())

	_, _, err := svc.CreateBatch(ctx, []models.Coupon{{Code: "DUP", IsActive: true}})
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("expected ErrCodeExists, got %v", err)
	}
}

func TestUpdateCoupon(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	id := testutil.CreateTestCoupon(t, db, "OLD", time.Now())
	testutil.CreateTestCoupon(t, db, "TAKEN", time.Now())

	newCode := "TAKEN"
	_, err := svc.Update(ctx, id, &newCode, nil, nil)
	if !errors.Is(err, ErrCodeExists) {
		t.Fatalf("expected ErrCodeExists when renaming to a taken code, got %v", err)
	}

	newCode = "RENAMED"
	inactive := false
	coupon, err := svc.Update(ctx, id, &newCode, nil, &inactive)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if coupon.Code != "RENAMED" || coupon.IsActive {
		t.Errorf("unexpected coupon after update: %+v", coupon)
	}

	_, err = svc.Update(ctx, 99999, &newCode, nil, nil)
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestDeleteClaimedCouponRefused(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	id := testutil.CreateTestCoupon(t, db, "CLAIMED", time.Now())
	testutil.CreateTestClaim(t, db, "fp-1", "10.0.0.1", id, time.Now())

	err := svc.Delete(ctx, id)
	if !errors.Is(err, ErrCouponClaimed) {
		t.Fatalf("expected ErrCouponClaimed, got %v", err)
	}

	// record unchanged
	var claimed bool
	if err := db.QueryRow(`SELECT is_claimed FROM coupons WHERE id = $1`, id).Scan(&claimed); err != nil {
		t.Fatalf("coupon disappeared: %v", err)
	}
	if !claimed {
		t.Error("claimed flag lost")
	}
}

func TestDeleteUnclaimedCoupon(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	id := testutil.CreateTestCoupon(t, db, "GONE", time.Now())
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM coupons WHERE id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Error("coupon still present after delete")
	}
}

func TestGetDetailIncludesClaim(t *testing.T) {
	svc, db := newCouponService(t)
	ctx := context.Background()

	id := testutil.CreateTestCoupon(t, db, "DETAIL", time.Now())
	claimID := testutil.CreateTestClaim(t, db, "fp-7", "10.0.0.7", id, time.Now())

	detail, err := svc.GetDetail(ctx, id)
	if err != nil {
		t.Fatalf("get detail failed: %v", err)
	}
	if detail.Claim == nil {
		t.Fatal("expected claim info on claimed coupon")
	}
	if detail.Claim.ID != claimID || detail.Claim.Fingerprint != "fp-7" {
		t.Errorf("unexpected claim: %+v", detail.Claim)
	}

	_, err = svc.GetDetail(ctx, 99999)
	if !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestGenerateTestCoupons(t *testing.T) {
	svc, _ := newCouponService(t)
	ctx := context.Background()

	coupons, err := svc.GenerateTestCoupons(ctx, 7)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(coupons) != 7 {
		t.Fatalf("generated %d coupons, want 7", len(coupons))
	}
	seen := map[string]bool{}
	for _, c := range coupons {
		if !strings.HasPrefix(c.Code, "TEST-") {
			t.Errorf("code %q missing TEST- prefix", c.Code)
		}
		if seen[c.Code] {
			t.Errorf("duplicate generated code %q", c.Code)
		}
		seen[c.Code] = true
		if !c.IsActive || c.IsClaimed {
			t.Errorf("unexpected flags on %+v", c)
		}
	}
}
