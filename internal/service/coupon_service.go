package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/lib/pq"

	"github.com/coupondrop/coupon-distribution-service/internal/cache"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

type CouponAdminStore interface {
	GetByID(ctx context.Context, id int64) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Insert(ctx context.Context, code, description string, isActive bool) (*models.Coupon, error)
	InsertBatch(ctx context.Context, coupons []models.Coupon) (int, error)
	ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error)
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id int64) error
}

type ClaimReader interface {
	GetByID(ctx context.Context, id int64) (*models.Claim, error)
}

// CouponService covers the admin side of the pool: CRUD, batch loading
// and test stock generation. Allocation lives in ClaimService.
type CouponService struct {
	coupons CouponAdminStore
	claims  ClaimReader
	stats   *cache.PoolStats
}

func NewCouponService(coupons CouponAdminStore, claims ClaimReader, stats *cache.PoolStats) *CouponService {
	return &CouponService{coupons: coupons, claims: claims, stats: stats}
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx)
}

// GetDetail returns the coupon together with the ledger entry that claimed
// it, when there is one.
func (s *CouponService) GetDetail(ctx context.Context, id int64) (*models.CouponDetail, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	detail := &models.CouponDetail{Coupon: *coupon}
	if coupon.ClaimedBy != nil {
		claim, err := s.claims.GetByID(ctx, *coupon.ClaimedBy)
		if err != nil {
			return nil, fmt.Errorf("get claim: %w", err)
		}
		detail.Claim = claim
	}
	return detail, nil
}

func (s *CouponService) Create(ctx context.Context, code, description string, isActive bool) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	existing, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check code: %w", err)
	}
	if existing != nil {
		return nil, ErrCodeExists
	}

	coupon, err := s.coupons.Insert(ctx, code, description, isActive)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, fmt.Errorf("insert coupon: %w", err)
	}
	s.stats.Invalidate()
	return coupon, nil
}

// CreateBatch inserts the new codes and skips duplicates, both within the
// batch and against the store. Returns how many were created and skipped.
func (s *CouponService) CreateBatch(ctx context.Context, coupons []models.Coupon) (created, skipped int, err error) {
	seen := make(map[string]bool, len(coupons))
	unique := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		c.Code = strings.TrimSpace(c.Code)
		if c.Code == "" || seen[c.Code] {
			skipped++
			continue
		}
		seen[c.Code] = true
		unique = append(unique, c)
	}

	codes := make([]string, 0, len(unique))
	for _, c := range unique {
		codes = append(codes, c.Code)
	}
	existing, err := s.coupons.ExistingCodes(ctx, codes)
	if err != nil {
		return 0, 0, fmt.Errorf("check existing codes: %w", err)
	}

	fresh := make([]models.Coupon, 0, len(unique))
	for _, c := range unique {
		if existing[c.Code] {
			skipped++
			continue
		}
		fresh = append(fresh, c)
	}

	if len(fresh) == 0 {
		return 0, skipped, ErrCodeExists
	}

	created, err = s.coupons.InsertBatch(ctx, fresh)
	if err != nil {
		return 0, 0, fmt.Errorf("insert batch: %w", err)
	}
	s.stats.Invalidate()
	return created, skipped, nil
}

// Update edits code, description and the active flag. nil fields keep the
// stored value; a code change re-validates uniqueness.
func (s *CouponService) Update(ctx context.Context, id int64, code, description *string, isActive *bool) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	if code != nil && *code != coupon.Code {
		existing, err := s.coupons.GetByCode(ctx, *code)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if existing != nil {
			return nil, ErrCodeExists
		}
		coupon.Code = *code
	}
	if description != nil {
		coupon.Description = *description
	}
	if isActive != nil {
		coupon.IsActive = *isActive
	}

	if err := s.coupons.Update(ctx, coupon); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCodeExists
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	s.stats.Invalidate()
	return coupon, nil
}

// Delete removes an unclaimed coupon. Claimed coupons are history and
// cannot be deleted.
func (s *CouponService) Delete(ctx context.Context, id int64) error {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if coupon.IsClaimed {
		return ErrCouponClaimed
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	s.stats.Invalidate()
	return nil
}

// GenerateTestCoupons creates count random active coupons for load testing
// the claim flow.
func (s *CouponService) GenerateTestCoupons(ctx context.Context, count int) ([]models.Coupon, error) {
	if count <= 0 {
		count = 5
	}

	coupons := make([]models.Coupon, 0, count)
	for i := 0; i < count; i++ {
		code, err := randomCode(8)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		coupons = append(coupons, models.Coupon{
			Code:        "TEST-" + code,
			Description: fmt.Sprintf("Test coupon %d", i+1),
			IsActive:    true,
		})
	}

	if _, err := s.coupons.InsertBatch(ctx, coupons); err != nil {
		return nil, fmt.Errorf("insert test coupons: %w", err)
	}
	s.stats.Invalidate()

	out, err := s.coupons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	set := make(map[string]struct{}, len(coupons))
	for _, c := range coupons {
		set[c.Code] = struct{}{}
	}
	generated := make([]models.Coupon, 0, count)
	for _, c := range out {
		if _, ok := set[c.Code]; ok {
			generated = append(generated, c)
		}
	}
	return generated, nil
}

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) (string, error) {
	code := make([]byte, n)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[idx.Int64()]
	}
	return string(code), nil
}

// isUniqueViolation detects Postgres unique_violation (23505), the race
// backstop for concurrent creates with the same code.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
