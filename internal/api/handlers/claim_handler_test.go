package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/cache"
	"github.com/coupondrop/coupon-distribution-service/internal/fingerprint"
	"github.com/coupondrop/coupon-distribution-service/internal/repository"
	"github.com/coupondrop/coupon-distribution-service/internal/service"
	"github.com/coupondrop/coupon-distribution-service/internal/testutil"
)

func newClaimHandler(t *testing.T) (*ClaimHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	svc := service.NewClaimService(
		db,
		repository.NewCouponRepo(db),
		repository.NewClaimRepo(db),
		cache.NewPoolStats(5*time.Second),
		cfg,
	)
	return NewClaimHandler(svc, fingerprint.NewGenerator(cfg)), db
}

func postClaim(h *ClaimHandler, cookie *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/api/coupons/claim", nil)
	r.RemoteAddr = "203.0.113.5:4321"
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.Claim(w, r)
	return w
}

func deviceCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == fingerprint.CookieName {
			return c
		}
	}
	t.Fatal("claim response did not set the fingerprint cookie")
	return nil
}

func TestClaimHandlerFlow(t *testing.T) {
	h, db := newClaimHandler(t)

	base := time.Now().Add(-time.Hour)
	testutil.CreateTestCoupon(t, db, "FIRST", base)
	testutil.CreateTestCoupon(t, db, "SECOND", base.Add(time.Minute))

	// first device claims the oldest coupon and gets a cookie
	w := postClaim(h, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp ClaimResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Coupon.Code != "FIRST" {
		t.Errorf("coupon = %s, want FIRST", resp.Coupon.Code)
	}
	cookie := deviceCookie(t, w)

	// same device again is in cooldown
	w = postClaim(h, cookie)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat claim status = %d, want 429", w.Code)
	}
	var denied CooldownResponse
	if err := json.NewDecoder(w.Body).Decode(&denied); err != nil {
		t.Fatalf("decode: %v", err)
	}
	retryAt, err := time.Parse(time.RFC3339, denied.RetryAfter)
	if err != nil {
		t.Fatalf("retryAfter %q not RFC3339: %v", denied.RetryAfter, err)
	}
	until := time.Until(retryAt)
	if until < 23*time.Hour || until > 25*time.Hour {
		t.Errorf("retryAfter %v away, want about 24h", until)
	}

	// a second device takes the next coupon
	w = postClaim(h, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second device status = %d", w.Code)
	}
	resp = ClaimResponse{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Coupon.Code != "SECOND" {
		t.Errorf("coupon = %s, want SECOND", resp.Coupon.Code)
	}

	// pool is now empty
	w = postClaim(h, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("exhausted status = %d, want 404", w.Code)
	}
	var exhausted ExhaustedResponse
	if err := json.NewDecoder(w.Body).Decode(&exhausted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := exhausted.Details
	if d.TotalCoupons != 2 || d.ClaimedCoupons != 2 || d.AvailableCoupons != 0 {
		t.Errorf("details = %+v, want total=2 claimed=2 available=0", d)
	}
}

func TestClaimHandlerEmptyPool(t *testing.T) {
	h, _ := newClaimHandler(t)

	w := postClaim(h, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var exhausted ExhaustedResponse
	if err := json.NewDecoder(w.Body).Decode(&exhausted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exhausted.Details.TotalCoupons != 0 || exhausted.Details.AvailableCoupons != 0 {
		t.Errorf("details = %+v, want all zero", exhausted.Details)
	}
}
