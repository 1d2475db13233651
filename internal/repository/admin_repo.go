package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

type AdminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	query := `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func (r *AdminRepo) Insert(ctx context.Context, username, passwordHash string) (*models.Admin, error) {
	var a models.Admin
	query := `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`
	err := r.db.QueryRowContext(ctx, query, username, passwordHash).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
