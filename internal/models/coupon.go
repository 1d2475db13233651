package models

import "time"

type Coupon struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	IsClaimed   bool      `json:"isClaimed"`
	ClaimedBy   *int64    `json:"claimedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CouponDetail joins a coupon with the claim that consumed it, for the
// admin detail view. Claim is nil while the coupon is unclaimed.
type CouponDetail struct {
	Coupon
	Claim *Claim `json:"claim"`
}

// PoolCounts is the diagnostic snapshot reported when allocation finds
// nothing to hand out.
type PoolCounts struct {
	TotalCoupons     int `json:"totalCoupons"`
	ClaimedCoupons   int `json:"claimedCoupons"`
	AvailableCoupons int `json:"availableCoupons"`
}
