package auth

import (
	"testing"
	"time"

	"pixcharge/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.APIConfig {
	return &config.APIConfig{TokenSecret: "0123456789abcdef0123", TokenExpiry: time.Hour, Issuer: "pixcharge"}
}

func TestServiceTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateServiceToken(cfg, "checkout", "payments", 0)
	require.NoError(t, err)

	claims, err := ParseServiceToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "checkout", claims.Subject)
	assert.Equal(t, "payments", claims.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseServiceToken_Rejects(t *testing.T) {
	cfg := testConfig()

	fallback, err := GenerateServiceToken(cfg, "checkout", "", -time.Minute)
	require.NoError(t, err)
	// A negative ttl falls back to the configured expiry.
	_, err = ParseServiceToken(cfg, fallback)
	require.NoError(t, err)

	other := *cfg
	other.TokenSecret = "another-secret-another"
	forged, err := GenerateServiceToken(&other, "checkout", "", time.Minute)
	require.NoError(t, err)
	_, err = ParseServiceToken(cfg, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	old := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "checkout",
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	s, err := old.SignedString([]byte(cfg.TokenSecret))
	require.NoError(t, err)
	_, err = ParseServiceToken(cfg, s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	s, err = noSubject.SignedString([]byte(cfg.TokenSecret))
	require.NoError(t, err)
	_, err = ParseServiceToken(cfg, s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseServiceToken(cfg, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
