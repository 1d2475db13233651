package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

const couponColumns = `id, code, description, is_active, is_claimed, claimed_by, created_at, updated_at`

func scanCoupon(row interface{ Scan(...any) error }) (*models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.IsActive,
		&c.IsClaimed,
		&c.ClaimedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CouponRepo) GetByID(ctx context.Context, id int64) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// List returns every coupon, newest first.
func (r *CouponRepo) List(ctx context.Context) ([]models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepo) Insert(ctx context.Context, code, description string, isActive bool) (*models.Coupon, error) {
	query := `
		INSERT INTO coupons (code, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING ` + couponColumns
	return scanCoupon(r.db.QueryRowContext(ctx, query, code, description, isActive))
}

// InsertBatch inserts all given coupons in one transaction.
func (r *CouponRepo) InsertBatch(ctx context.Context, coupons []models.Coupon) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := `INSERT INTO coupons (code, description, is_active) VALUES ($1, $2, $3)`
	for _, c := range coupons {
		if _, err := tx.ExecContext(ctx, stmt, c.Code, c.Description, c.IsActive); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(coupons), nil
}

// ExistingCodes reports which of the given codes are already in the store.
func (r *CouponRepo) ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	query := `SELECT code FROM coupons WHERE code = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(codes))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		existing[code] = true
	}
	return existing, rows.Err()
}

func (r *CouponRepo) Update(ctx context.Context, c *models.Coupon) error {
	query := `
		UPDATE coupons
		SET code = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Code, c.Description, c.IsActive)
	return err
}

func (r *CouponRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	return err
}

func (r *CouponRepo) Counts(ctx context.Context) (models.PoolCounts, error) {
	var counts models.PoolCounts
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_claimed),
		       COUNT(*) FILTER (WHERE is_active AND NOT is_claimed)
		FROM coupons
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&counts.TotalCoupons,
		&counts.ClaimedCoupons,
		&counts.AvailableCoupons,
	)
	return counts, err
}

// NextAvailable picks the oldest active unclaimed coupon and row-locks it
// for the rest of the allocation transaction. SKIP LOCKED keeps concurrent
// claimers off each other's candidate instead of queueing on one row.
func (r *CouponRepo) NextAvailable(ctx context.Context, tx *sql.Tx) (*models.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE is_active AND NOT is_claimed
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	c, err := scanCoupon(tx.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// MarkClaimed flags the coupon claimed only if it is still unclaimed.
// Returns false when another transaction already took it.
func (r *CouponRepo) MarkClaimed(ctx context.Context, tx *sql.Tx, couponID int64) (bool, error) {
	query := `
		UPDATE coupons
		SET is_claimed = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_claimed = FALSE
	`
	res, err := tx.ExecContext(ctx, query, couponID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetClaimedBy records the back-reference from the coupon to its ledger entry.
func (r *CouponRepo) SetClaimedBy(ctx context.Context, tx *sql.Tx, couponID, claimID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE coupons SET claimed_by = $2, updated_at = NOW() WHERE id = $1`,
		couponID, claimID)
	return err
}
