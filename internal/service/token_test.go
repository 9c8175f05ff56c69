package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtube/authcore/internal/util"
)

func newTestTokenService(secret string) *TokenService {
	return NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    time.Minute,
		RefreshTTL:   time.Hour,
	})
}

func TestTokenService_AccessToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService("test-secret")

	token, jti, err := ts.CreateAccessToken(42, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	userID, err := ts.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_AccessToken_Expired(t *testing.T) {
	ts := newTestTokenService("test-secret")

	// Issued two minutes ago with a one minute TTL: expired beyond leeway.
	token, _, err := ts.CreateAccessToken(42, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = ts.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_AccessToken_ValidJustBeforeExpiry(t *testing.T) {
	ts := newTestTokenService("test-secret")

	token, _, err := ts.CreateAccessToken(42, time.Now().Add(-50*time.Second))
	require.NoError(t, err)

	userID, err := ts.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenService_AccessToken_WrongKey(t *testing.T) {
	issuer := newTestTokenService("issuer-secret")
	verifier := newTestTokenService("other-secret")

	token, _, err := issuer.CreateAccessToken(42, time.Now())
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_AccessToken_Garbage(t *testing.T) {
	ts := newTestTokenService("test-secret")

	_, err := ts.ValidateAccessToken("not.a.jwt")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RefreshToken_Format(t *testing.T) {
	ts := newTestTokenService("test-secret")

	token, selector, verifierHash, err := ts.CreateRefreshToken()
	require.NoError(t, err)

	gotSelector, gotVerifier, err := SplitRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, selector, gotSelector)
	assert.NotEmpty(t, gotVerifier)
	assert.NotContains(t, verifierHash, gotVerifier)

	require.NoError(t, ts.ValidateRefreshToken(token, verifierHash))
}

func TestTokenService_RefreshToken_Unique(t *testing.T) {
	ts := newTestTokenService("test-secret")

	first, firstSelector, _, err := ts.CreateRefreshToken()
	require.NoError(t, err)
	second, secondSelector, _, err := ts.CreateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, firstSelector, secondSelector)
}

func TestTokenService_ValidateRefreshToken_Mismatch(t *testing.T) {
	ts := newTestTokenService("test-secret")

	token, _, _, err := ts.CreateRefreshToken()
	require.NoError(t, err)
	_, _, otherHash, err := ts.CreateRefreshToken()
	require.NoError(t, err)

	err = ts.ValidateRefreshToken(token, otherHash)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSplitRefreshToken_Malformed(t *testing.T) {
	for _, token := range []string{"", "nodot", "a.b.c", ".verifier", "selector.", strings.Repeat(".", 3)} {
		_, _, err := SplitRefreshToken(token)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", token)
	}
}
