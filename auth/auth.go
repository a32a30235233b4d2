// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Anonymous session identity.
const (
	AnonymousCookieName = "testero_anonymous_session_id"
	AnonymousHeaderName = "X-Anonymous-Session-ID"
	AnonymousQueryParam = "anonymousSessionId"
	AnonymousCookieTTL  = 30 * 24 * time.Hour
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewAnonymousSessionID returns a fresh guest identifier.
func NewAnonymousSessionID() string {
	return uuid.NewString()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}

// Claims are the Supabase access token claims we rely on.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// VerifyAccessToken validates an HS256 Supabase access token and returns
// the user id from its subject. Expiry is enforced.
func VerifyAccessToken(token, secret string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueAccessToken signs a token for userID. Used by tests and local tooling.
func IssueAccessToken(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// UserID returns the authenticated user for r, or "" for guests and
// invalid tokens.
func UserID(r *http.Request, secret string) string {
	token, err := BearerToken(r)
	if err != nil {
		return ""
	}
	userID, err := VerifyAccessToken(token, secret)
	if err != nil {
		return ""
	}
	return userID
}

// AnonymousSessionID resolves the guest identifier. An explicit value from
// the request body wins, then the query string, the header and finally the
// cookie.
func AnonymousSessionID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if v := r.URL.Query().Get(AnonymousQueryParam); v != "" {
		return v
	}
	if v := r.Header.Get(AnonymousHeaderName); v != "" {
		return v
	}
	if c, err := r.Cookie(AnonymousCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetAnonymousCookie persists the guest identifier on the client.
func SetAnonymousCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonymousCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(AnonymousCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAnonymousCookie removes the guest identifier after it has been
// claimed by an account.
func ClearAnonymousCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonymousCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
