// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// GraceCookieName holds the short-lived pass issued after checkout, so a
// new subscriber is not paywalled while the billing webhook catches up.
const (
	GraceCookieName = "checkout_grace"
	GraceCookieTTL  = 15 * time.Minute
)

type gracePayload struct {
	CheckoutSuccess bool  `json:"checkoutSuccess"`
	Exp             int64 `json:"exp"`
}

func signGrace(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// SignGraceCookie builds a cookie value valid until now+GraceCookieTTL.
// The value is base64url(payload) + "." + base64url(HMAC-SHA256(payload)).
func SignGraceCookie(secret string, now time.Time) (string, error) {
	payload, err := json.Marshal(gracePayload{CheckoutSuccess: true, Exp: now.Add(GraceCookieTTL).Unix()})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + signGrace(payload, secret), nil
}

// VerifyGraceCookie checks signature, expiry and the checkout flag. An
// empty secret disables grace cookies.
func VerifyGraceCookie(value, secret string, now time.Time) bool {
	if secret == "" || value == "" {
		return false
	}

	encoded, signature, ok := strings.Cut(value, ".")
	if !ok || encoded == "" || signature == "" {
		return false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	if !hmac.Equal([]byte(signature), []byte(signGrace(payload, secret))) {
		return false
	}

	var p gracePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	if p.Exp != 0 && p.Exp < now.Unix() {
		return false
	}
	return p.CheckoutSuccess
}

// HasValidGrace reports whether r carries a valid grace cookie.
func HasValidGrace(r *http.Request, secret string) bool {
	c, err := r.Cookie(GraceCookieName)
	if err != nil {
		return false
	}
	return VerifyGraceCookie(c.Value, secret, time.Now())
}
