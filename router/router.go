// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/handlers"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/ratelimit"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, checker *billing.Checker, limiter ratelimit.Limiter) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	diagnosticHandler := handlers.NewDiagnosticHandler(db, cfg, checker)
	practiceHandler := handlers.NewPracticeHandler(db, cfg, checker)
	dashboardHandler := handlers.NewDashboardHandler(db, cfg)
	questionsHandler := handlers.NewQuestionsHandler(db, cfg)
	studyPathHandler := handlers.NewStudyPathHandler(db, cfg)
	accountHandler := handlers.NewAccountHandler(db, cfg, checker)

	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(middleware.WithMetrics(h)))
	}
	limited := func(pattern string, h http.HandlerFunc) {
		route(pattern, middleware.WithRateLimit(limiter, cfg.IPHashSalt, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", middleware.MetricsHandler())

	// Diagnostics (guests allowed on the action endpoint)
	route("POST /api/diagnostic", diagnosticHandler.HandleAction)
	route("GET /api/diagnostic", diagnosticHandler.GetSession)
	limited("POST /api/diagnostic/session", diagnosticHandler.CreateSession)
	route("GET /api/diagnostic/session/{id}/status", diagnosticHandler.SessionStatus)
	route("GET /api/diagnostic/summary/{sessionId}", diagnosticHandler.Summary)

	// Practice sessions
	limited("POST /api/practice/session", practiceHandler.CreateSession)
	route("GET /api/practice/session/{sessionId}", practiceHandler.GetSession)
	route("POST /api/practice/session/{sessionId}/answer", practiceHandler.SubmitAnswer)
	route("POST /api/practice/session/{sessionId}/complete", practiceHandler.CompleteSession)
	route("GET /api/practice/session/{sessionId}/summary", practiceHandler.Summary)

	// Dashboard and readiness
	route("GET /api/dashboard", dashboardHandler.GetDashboard)
	route("GET /api/dashboard/summary", dashboardHandler.GetSummary)

	// Quick practice
	route("GET /api/questions/current", questionsHandler.GetCurrent)
	route("POST /api/questions/submit", questionsHandler.Submit)

	// Study planning
	route("POST /api/study-path", studyPathHandler.Generate)
	route("GET /api/study-plan/prefill", studyPathHandler.Prefill)

	// Account
	route("POST /api/auth/claim-anonymous-sessions", accountHandler.ClaimAnonymousSessions)
	route("GET /api/billing/status", accountHandler.BillingStatus)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
			return
		}
		w.Write([]byte("testero API v1"))
	})

	return mux
}
