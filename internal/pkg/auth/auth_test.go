package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "giftcard-test"},
		JWT:      config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", AccessTokenExpiry: time.Hour},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(testConfig())

	token, err := m.GenerateAccessToken(42, "ops@example.com", true)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "user:42", claims.Subject)
}

func TestExpiredAndForeignTokensRejected(t *testing.T) {
	cfg := testConfig()
	m := NewJWTManager(cfg)
	token, err := m.GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)

	other := testConfig()
	other.JWT.Secret = "ffffffffffffffffffffffffffffffff"
	_, err = NewJWTManager(other).ValidateAccessToken(token)
	assert.Error(t, err)

	_, err = NewJWTManager(cfg).ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestVerifyOperator(t *testing.T) {
	cfg := testConfig()
	p := NewPasswordManager(cfg)

	assert.ErrorIs(t, p.VerifyOperator("ops@example.com", "whatever1"), ErrInvalidCredentials)

	hash, err := p.HashPassword("s3cret-pass")
	require.NoError(t, err)
	cfg.Admin = config.AdminConfig{Email: "ops@example.com", PasswordHash: hash}

	assert.NoError(t, p.VerifyOperator(" OPS@example.com", "s3cret-pass"))
	assert.ErrorIs(t, p.VerifyOperator("ops@example.com", "wrong-pass"), ErrInvalidCredentials)
	assert.ErrorIs(t, p.VerifyOperator("eve@example.com", "s3cret-pass"), ErrInvalidCredentials)

	_, err = p.HashPassword("short")
	assert.Error(t, err)
}
