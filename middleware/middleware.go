// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/ratelimit"
)

// MaxBodyBytes caps JSON request bodies. The largest legitimate body is a
// practice completion with one entry per question.
const MaxBodyBytes = 1 << 20

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		slog.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		next(rec, r)

		attrs := []any{
			"method", r.Method,
			"route", routeLabel(r.Pattern),
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			slog.Warn("request failed", attrs...)
			return
		}
		slog.Info("request completed", attrs...)
	}
}

// WithRateLimit rejects callers over the limiter's window with 429.
// Callers are keyed by the salted hash of their client IP. A nil limiter
// disables the check.
func WithRateLimit(limiter ratelimit.Limiter, salt string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil {
			key := auth.HashIP(GetClientIP(r), salt)
			if !limiter.Allow(r.Context(), key) {
				RecordRateLimited(r.Pattern)
				slog.Warn("rate limit exceeded", "path", r.URL.Path, "ip_hash", key)
				ErrorResponse(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}
		next(w, r)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// CodeResponse writes a JSON error response carrying a machine-readable
// code, e.g. PAYWALL
func CodeResponse(w http.ResponseWriter, statusCode int, code string) {
	RecordBlocked(code)
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error: http.StatusText(statusCode),
		Code:  code,
	})
}

// ParseJSONBody decodes at most MaxBodyBytes of the request body into v.
// An empty body returns io.EOF, which callers with optional bodies accept.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v)
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+auth.AnonymousHeaderName)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Add("Vary", "Origin")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP address.
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func GetClientIP(r *http.Request) string {
	// First hop of the load balancer chain
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
