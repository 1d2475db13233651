package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrCodeExists         = errors.New("coupon code already exists")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponClaimed      = errors.New("coupon already claimed")
	ErrNoCouponsAvailable = errors.New("no coupons available")
	ErrAdminExists        = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CooldownError denies a claim because the requester already holds one.
// RetryAfter is zero under the permanent policy (the denial never expires).
type CooldownError struct {
	RetryAfter time.Time
}

func (e *CooldownError) Error() string {
	if e.RetryAfter.IsZero() {
		return "already claimed a coupon"
	}
	return fmt.Sprintf("already claimed a coupon, retry after %s", e.RetryAfter.Format(time.RFC3339))
}
