package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour, nil)
	tok, err := issuer.GenerateJWT("64b000000000000000000001", "admin")
	require.NoError(t, err)

	claims, err := issuer.ParseSession(tok)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenPurposesDoNotMix(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour, nil)
	session, err := issuer.GenerateJWT("u1", "user")
	require.NoError(t, err)
	reset, err := issuer.GenerateResetToken("u1", "a@b.c", "hash")
	require.NoError(t, err)

	_, err = issuer.ParseReset(session)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.ParseSession(reset)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := issuer.ParseReset(reset)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, PasswordFingerprint("hash"), claims.Fingerprint)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour, 30*time.Minute, fixedClock(now))
	tok, err := issuer.GenerateResetToken("u1", "a@b.c", "hash")
	require.NoError(t, err)

	later := NewTokenIssuer("secret", time.Hour, 30*time.Minute, fixedClock(now.Add(31*time.Minute)))
	_, err = later.ParseReset(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	earlier := NewTokenIssuer("secret", time.Hour, 30*time.Minute, fixedClock(now.Add(29*time.Minute)))
	_, err = earlier.ParseReset(tok)
	assert.NoError(t, err)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, time.Hour, nil)

	other := NewTokenIssuer("other-secret", time.Hour, time.Hour, nil)
	tok, err := other.GenerateJWT("u1", "user")
	require.NoError(t, err)
	_, err = issuer.ParseSession(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "purpose": PurposeSession, "iss": "car-inventory-server",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.ParseSession(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseSession("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour, time.Hour, nil).GenerateJWT("u1", "user")
	assert.Error(t, err)
}

func TestPasswordFingerprintTracksHash(t *testing.T) {
	assert.Equal(t, PasswordFingerprint("a"), PasswordFingerprint("a"))
	assert.NotEqual(t, PasswordFingerprint("a"), PasswordFingerprint("b"))
	assert.Len(t, PasswordFingerprint("a"), 16)
}
