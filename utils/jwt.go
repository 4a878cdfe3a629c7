package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A reset token is never accepted as a session and vice versa.
const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

const issuer = "car-inventory-server"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims is what a session token proves.
type SessionClaims struct {
	UserID string
	Role   string
}

// ResetClaims is what a password reset token proves. Fingerprint ties the
// token to the password hash it was issued against.
type ResetClaims struct {
	UserID      string
	Email       string
	Fingerprint string
}

// TokenIssuer signs and verifies HS256 tokens with one secret.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds an issuer. now may be nil, in which case time.Now is used.
func NewTokenIssuer(secret string, sessionTTL, resetTTL time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        now,
	}
}

// ResetTTL is how long a reset token stays valid.
func (t *TokenIssuer) ResetTTL() time.Duration { return t.resetTTL }

// GenerateJWT creates a signed session token for the given user ID and role.
func (t *TokenIssuer) GenerateJWT(userID, role string) (string, error) {
	return t.sign(jwt.MapClaims{
		"sub":     userID,
		"role":    role,
		"purpose": PurposeSession,
	}, t.sessionTTL)
}

// GenerateResetToken creates a signed password reset token.
func (t *TokenIssuer) GenerateResetToken(userID, email, passwordHash string) (string, error) {
	return t.sign(jwt.MapClaims{
		"sub":     userID,
		"email":   email,
		"purpose": PurposeReset,
		"pwf":     PasswordFingerprint(passwordHash),
	}, t.resetTTL)
}

// ParseSession verifies a session token.
func (t *TokenIssuer) ParseSession(tokenStr string) (*SessionClaims, error) {
	claims, err := t.parse(tokenStr, PurposeSession)
	if err != nil {
		return nil, err
	}
	role, _ := claims["role"].(string)
	return &SessionClaims{UserID: claims["sub"].(string), Role: role}, nil
}

// ParseReset verifies a password reset token.
func (t *TokenIssuer) ParseReset(tokenStr string) (*ResetClaims, error) {
	claims, err := t.parse(tokenStr, PurposeReset)
	if err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	fp, _ := claims["pwf"].(string)
	return &ResetClaims{UserID: claims["sub"].(string), Email: email, Fingerprint: fp}, nil
}

// PasswordFingerprint is a short digest of a password hash. It changes
// whenever the password does.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (t *TokenIssuer) sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := t.now()
	claims["iat"] = now.Unix()
	claims["iss"] = issuer
	claims["exp"] = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(tokenStr, purpose string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(tk *jwt.Token) (interface{}, error) {
		// enforce HMAC signing method
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return nil, ErrInvalidToken
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
