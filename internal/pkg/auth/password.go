// internal/pkg/auth/password.go
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/giftcard-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any operator login failure
var ErrInvalidCredentials = errors.New("invalid credentials")

// PasswordManager handles password operations
type PasswordManager struct {
	config *config.Config
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	return &PasswordManager{
		config: cfg,
	}
}

// HashPassword hashes a password using bcrypt
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 72 {
		return "", fmt.Errorf("password must be no more than 72 characters long")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.config.Security.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// VerifyOperator checks the configured admin credentials.
// An unset password hash disables operator login.
func (p *PasswordManager) VerifyOperator(email, password string) error {
	admin := p.config.Admin
	if admin.PasswordHash == "" || admin.Email == "" {
		return ErrInvalidCredentials
	}

	emailMatch := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(strings.ToLower(admin.Email)),
	) == 1
	if err := p.VerifyPassword(password, admin.PasswordHash); err != nil || !emailMatch {
		return ErrInvalidCredentials
	}
	return nil
}
