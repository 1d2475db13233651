package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/cache"
	"github.com/coupondrop/coupon-distribution-service/internal/config"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

// Stores required by the claim path (interfaces to allow mocking).
type CouponStore interface {
	NextAvailable(ctx context.Context, tx *sql.Tx) (*models.Coupon, error)
	MarkClaimed(ctx context.Context, tx *sql.Tx, couponID int64) (bool, error)
	SetClaimedBy(ctx context.Context, tx *sql.Tx, couponID, claimID int64) error
	Counts(ctx context.Context) (models.PoolCounts, error)
}

type ClaimLedger interface {
	Insert(ctx context.Context, tx *sql.Tx, fingerprint, ipAddress string, couponID int64) (*models.Claim, error)
	FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*models.Claim, error)
	FindRecentByIP(ctx context.Context, ipAddress string, since time.Time) (*models.Claim, error)
}

// Two concurrent claims racing for the same candidate coupon resolve by a
// conditional flag; the loser retries selection against the updated pool.
const maxAllocateAttempts = 3

type ClaimService struct {
	db      *sql.DB // allocation transactions
	coupons CouponStore
	ledger  ClaimLedger
	stats   *cache.PoolStats
	cfg     *config.Config
}

func NewClaimService(db *sql.DB, coupons CouponStore, ledger ClaimLedger, stats *cache.PoolStats, cfg *config.Config) *ClaimService {
	return &ClaimService{
		db:      db,
		coupons: coupons,
		ledger:  ledger,
		stats:   stats,
		cfg:     cfg,
	}
}

// Claim hands exactly one coupon to the given requester, or explains why not.
// Returns *CooldownError when the identity already claimed recently and
// ErrNoCouponsAvailable when the pool is drained.
func (s *ClaimService) Claim(ctx context.Context, fingerprint, ipAddress string) (*models.Coupon, *models.Claim, error) {
	if err := s.checkEligibility(ctx, fingerprint, ipAddress); err != nil {
		return nil, nil, err
	}
	return s.allocate(ctx, fingerprint, ipAddress)
}

// checkEligibility queries the ledger for a recent claim by the configured
// identity key. The cooldown cutoff is the zero time under the permanent
// policy, which matches every prior claim.
func (s *ClaimService) checkEligibility(ctx context.Context, fingerprint, ipAddress string) error {
	var since time.Time
	if s.cfg.CooldownPolicy == config.CooldownWindow {
		since = time.Now().UTC().Add(-s.cfg.Cooldown)
	}

	var prior *models.Claim
	var err error
	switch s.cfg.EligibilityKey {
	case config.EligibilityIP:
		prior, err = s.ledger.FindRecentByIP(ctx, ipAddress, since)
	case config.EligibilityBoth:
		prior, err = s.ledger.FindRecentByFingerprint(ctx, fingerprint, since)
		if err == nil && prior == nil {
			prior, err = s.ledger.FindRecentByIP(ctx, ipAddress, since)
		}
	default: // fingerprint only; shared networks must not block each other
		prior, err = s.ledger.FindRecentByFingerprint(ctx, fingerprint, since)
	}
	if err != nil {
		return fmt.Errorf("eligibility lookup: %w", err)
	}
	if prior == nil {
		return nil
	}

	denial := &CooldownError{}
	if s.cfg.CooldownPolicy == config.CooldownWindow {
		denial.RetryAfter = prior.ClaimedAt.Add(s.cfg.Cooldown)
	}
	return denial
}

// allocate runs the select-then-flag transaction. The conditional update in
// MarkClaimed is the serialization point: when it affects no row another
// request won the race and we retry against the now-updated pool.
func (s *ClaimService) allocate(ctx context.Context, fingerprint, ipAddress string) (*models.Coupon, *models.Claim, error) {
	for attempt := 1; attempt <= maxAllocateAttempts; attempt++ {
		coupon, claim, won, err := s.tryAllocate(ctx, fingerprint, ipAddress)
		if err != nil {
			return nil, nil, err
		}
		if won {
			s.stats.Invalidate()
			return coupon, claim, nil
		}
		slog.Debug("allocation conflict, retrying",
			"fingerprint", fingerprint,
			"attempt", attempt,
		)
	}
	// retries exhausted: the pool is draining faster than we can select
	return nil, nil, ErrNoCouponsAvailable
}

func (s *ClaimService) tryAllocate(ctx context.Context, fingerprint, ipAddress string) (*models.Coupon, *models.Claim, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	coupon, err := s.coupons.NextAvailable(ctx, tx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("select next coupon: %w", err)
	}
	if coupon == nil {
		return nil, nil, false, ErrNoCouponsAvailable
	}

	won, err := s.coupons.MarkClaimed(ctx, tx, coupon.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("flag coupon claimed: %w", err)
	}
	if !won {
		return nil, nil, false, nil
	}

	claim, err := s.ledger.Insert(ctx, tx, fingerprint, ipAddress, coupon.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := s.coupons.SetClaimedBy(ctx, tx, coupon.ID, claim.ID); err != nil {
		return nil, nil, false, fmt.Errorf("set claimed_by: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("commit claim: %w", err)
	}
	committed = true

	coupon.IsClaimed = true
	coupon.ClaimedBy = &claim.ID
	return coupon, claim, true, nil
}

// PoolCounts reports total/claimed/available, served from a short-lived
// cache that claim and admin writes invalidate.
func (s *ClaimService) PoolCounts(ctx context.Context) (models.PoolCounts, error) {
	if counts, ok := s.stats.Get(); ok {
		return counts, nil
	}
	counts, err := s.coupons.Counts(ctx)
	if err != nil {
		return models.PoolCounts{}, fmt.Errorf("count pool: %w", err)
	}
	s.stats.Set(counts)
	return counts, nil
}
