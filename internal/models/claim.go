package models

import "time"

// Claim is one ledger entry: which device took which coupon, and when.
// Entries are append-only; nothing updates or deletes them.
type Claim struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	IPAddress   string    `json:"ipAddress"`
	CouponID    int64     `json:"couponId"`
	ClaimedAt   time.Time `json:"claimedAt"`
}

// ClaimWithCoupon is the admin list view: a ledger entry with the coupon
// it references.
type ClaimWithCoupon struct {
	Claim
	CouponCode        string `json:"couponCode"`
	CouponDescription string `json:"couponDescription"`
}

type ClaimStats struct {
	TotalClaims        int `json:"totalClaims"`
	ClaimsLast24Hours  int `json:"claimsLast24Hours"`
	ClaimsLast7Days    int `json:"claimsLast7Days"`
	UniqueIPCount      int `json:"uniqueIPCount"`
	UniqueBrowserCount int `json:"uniqueBrowserCount"`
}
