// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/auth"
)

// Service handles customer registration and login
type Service struct {
	repo      Repository
	passwords *auth.PasswordManager
	logger    logrus.FieldLogger
}

// NewService creates a new user service
func NewService(repo Repository, passwords *auth.PasswordManager, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required,max=100"`
	LastName        string `json:"last_name" binding:"max=100"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new customer account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	const op = "user.Register"

	if req.Password != req.ConfirmPassword {
		return nil, apperror.Validation(op, "passwords do not match")
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		return nil, apperror.Validation(op, "password must be between 8 and 72 characters long")
	}

	hashed, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	u := &User{
		Email:     NormalizeEmail(req.Email),
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login checks credentials. Unknown, inactive and mismatched accounts all
// report auth.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrInvalidCredentials
	}
	if err := s.passwords.VerifyPassword(req.Password, u.Password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Warn("failed to record login")
	} else {
		u.LastLoginAt = &now
	}
	return u, nil
}

// Get returns an account by id
func (s *Service) Get(ctx context.Context, id uint) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
