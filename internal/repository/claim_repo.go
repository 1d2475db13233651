package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

// ClaimRepo is the claim ledger: append-only, queryable by fingerprint,
// IP and time range. Nothing here updates or deletes rows.
type ClaimRepo struct {
	db *sql.DB
}

func NewClaimRepo(db *sql.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// Insert writes a ledger entry inside the allocation transaction.
func (r *ClaimRepo) Insert(ctx context.Context, tx *sql.Tx, fingerprint, ipAddress string, couponID int64) (*models.Claim, error) {
	var c models.Claim
	query := `
		INSERT INTO claims (fingerprint, ip_address, coupon_id)
		VALUES ($1, $2, $3)
		RETURNING id, fingerprint, ip_address, coupon_id, claimed_at
	`
	err := tx.QueryRowContext(ctx, query, fingerprint, ipAddress, couponID).Scan(
		&c.ID, &c.Fingerprint, &c.IPAddress, &c.CouponID, &c.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClaimRepo) FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*models.Claim, error) {
	query := `
		SELECT id, fingerprint, ip_address, coupon_id, claimed_at
		FROM claims
		WHERE fingerprint = $1 AND claimed_at >= $2
		ORDER BY claimed_at DESC
		LIMIT 1
	`
	return r.findRecent(ctx, query, fingerprint, since)
}

func (r *ClaimRepo) FindRecentByIP(ctx context.Context, ipAddress string, since time.Time) (*models.Claim, error) {
	query := `
		SELECT id, fingerprint, ip_address, coupon_id, claimed_at
		FROM claims
		WHERE ip_address = $1 AND claimed_at >= $2
		ORDER BY claimed_at DESC
		LIMIT 1
	`
	return r.findRecent(ctx, query, ipAddress, since)
}

func (r *ClaimRepo) findRecent(ctx context.Context, query, key string, since time.Time) (*models.Claim, error) {
	var c models.Claim
	err := r.db.QueryRowContext(ctx, query, key, since).Scan(
		&c.ID, &c.Fingerprint, &c.IPAddress, &c.CouponID, &c.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ClaimRepo) GetByID(ctx context.Context, id int64) (*models.Claim, error) {
	var c models.Claim
	query := `SELECT id, fingerprint, ip_address, coupon_id, claimed_at FROM claims WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Fingerprint, &c.IPAddress, &c.CouponID, &c.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

const claimJoinQuery = `
	SELECT cl.id, cl.fingerprint, cl.ip_address, cl.coupon_id, cl.claimed_at,
	       co.code, co.description
	FROM claims cl
	JOIN coupons co ON co.id = cl.coupon_id
`

// ListAll returns every ledger entry with its coupon, newest first.
func (r *ClaimRepo) ListAll(ctx context.Context) ([]models.ClaimWithCoupon, error) {
	return r.list(ctx, claimJoinQuery+` ORDER BY cl.claimed_at DESC, cl.id DESC`)
}

func (r *ClaimRepo) ListByIP(ctx context.Context, ipAddress string) ([]models.ClaimWithCoupon, error) {
	query := claimJoinQuery + ` WHERE cl.ip_address = $1 ORDER BY cl.claimed_at DESC, cl.id DESC`
	return r.list(ctx, query, ipAddress)
}

func (r *ClaimRepo) ListByFingerprint(ctx context.Context, fingerprint string) ([]models.ClaimWithCoupon, error) {
	query := claimJoinQuery + ` WHERE cl.fingerprint = $1 ORDER BY cl.claimed_at DESC, cl.id DESC`
	return r.list(ctx, query, fingerprint)
}

func (r *ClaimRepo) list(ctx context.Context, query string, args ...any) ([]models.ClaimWithCoupon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.ClaimWithCoupon{}
	for rows.Next() {
		var c models.ClaimWithCoupon
		err := rows.Scan(
			&c.ID, &c.Fingerprint, &c.IPAddress, &c.CouponID, &c.ClaimedAt,
			&c.CouponCode, &c.CouponDescription,
		)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *ClaimRepo) Stats(ctx context.Context, now time.Time) (models.ClaimStats, error) {
	var stats models.ClaimStats
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE claimed_at >= $1),
		       COUNT(*) FILTER (WHERE claimed_at >= $2),
		       COUNT(DISTINCT ip_address),
		       COUNT(DISTINCT fingerprint)
		FROM claims
	`
	err := r.db.QueryRowContext(ctx, query,
		now.Add(-24*time.Hour),
		now.Add(-7*24*time.Hour),
	).Scan(
		&stats.TotalClaims,
		&stats.ClaimsLast24Hours,
		&stats.ClaimsLast7Days,
		&stats.UniqueIPCount,
		&stats.UniqueBrowserCount,
	)
	return stats, err
}
