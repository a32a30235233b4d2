// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging and Metrics

Routes are wrapped with request logging and Prometheus metrics:

	mux.HandleFunc("GET /api/dashboard", middleware.WithLogging(middleware.WithMetrics(handler)))

Logs request start (method, path, remote) and completion (duration_ms).
Metrics are labelled by the matched route pattern and exposed by
MetricsHandler on GET /metrics.

# Rate Limiting

Session creation is limited per hashed client IP:

	middleware.WithRateLimit(limiter, cfg.IPHashSalt, handler)

Rejected requests get 429.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Anonymous-Session-ID.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodeResponse(w, http.StatusForbidden, billing.CodePaywall)

Parse and validate JSON request bodies:

	var req models.CreatePracticeSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used as the rate limit key after salted hashing.
*/
package middleware
