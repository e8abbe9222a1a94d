package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// refreshCookieName is the httpOnly cookie carrying the refresh credential.
const refreshCookieName = "flowtrack_refresh"

// Authenticator issues and verifies credentials: short-lived HS256 access
// tokens and opaque refresh tokens stored server-side as hashes.
type Authenticator struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthenticator creates an Authenticator signing with the given secret.
func NewAuthenticator(secret string, accessTTL, refreshTTL time.Duration) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// accessClaims is the JWT payload for access tokens.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAccessToken returns a signed access token for the user.
func (a *Authenticator) IssueAccessToken(u *model.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates a signed token and returns the subject user ID
// and role.
func (a *Authenticator) VerifyAccessToken(raw string) (userID string, role model.Role, err error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse access token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", "", fmt.Errorf("invalid access token")
	}
	return claims.Subject, model.Role(claims.Role), nil
}

// NewRefreshToken returns a fresh opaque refresh token and its storage hash.
func (a *Authenticator) NewRefreshToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashRefreshToken(raw), nil
}

// HashRefreshToken maps a raw refresh token to its storage key.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
