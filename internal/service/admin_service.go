package service

import (
	"context"
	"fmt"

	"github.com/coupondrop/coupon-distribution-service/internal/auth"
	"github.com/coupondrop/coupon-distribution-service/internal/models"
)

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, username, passwordHash string) (*models.Admin, error)
}

type AdminService struct {
	admins AdminStore
	tokens *auth.Tokens
}

func NewAdminService(admins AdminStore, tokens *auth.Tokens) *AdminService {
	return &AdminService{admins: admins, tokens: tokens}
}

// Login verifies the credentials and returns the admin plus a session token.
func (s *AdminService) Login(ctx context.Context, username, password string) (*models.Admin, string, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("get admin: %w", err)
	}
	if admin == nil || !auth.CheckPassword(admin.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(admin.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return admin, token, nil
}

// Setup creates the first admin account. Refused once any admin exists.
func (s *AdminService) Setup(ctx context.Context, username, password string) (*models.Admin, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil, ErrAdminExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.Insert(ctx, username, hash)
	if err != nil {
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	return admin, nil
}
