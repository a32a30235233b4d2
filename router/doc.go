// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Testero API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, checker, limiter)

# Endpoints

Ops:

	GET /health
	GET /metrics
	GET /

Diagnostics (guests allowed on the action endpoint):

	POST /api/diagnostic                       - start / answer / complete
	GET  /api/diagnostic?sessionId=            - Resume session
	POST /api/diagnostic/session               - Start (signed in, rate limited)
	GET  /api/diagnostic/session/{id}/status   - Session status
	GET  /api/diagnostic/summary/{sessionId}   - Completed session review

Practice (signed in):

	POST /api/practice/session                        - Create (rate limited)
	GET  /api/practice/session/{sessionId}            - Session with questions
	POST /api/practice/session/{sessionId}/answer     - Record one answer
	POST /api/practice/session/{sessionId}/complete   - Finish the session
	GET  /api/practice/session/{sessionId}/summary    - Review (subscribers)

Dashboard, quick practice and planning (signed in unless noted):

	GET  /api/dashboard
	GET  /api/dashboard/summary?examKey=pmle
	GET  /api/questions/current
	POST /api/questions/submit
	POST /api/study-path
	GET  /api/study-plan/prefill?diagnosticId=   - owner or guest

Account:

	POST /api/auth/claim-anonymous-sessions
	GET  /api/billing/status

Every API route is wrapped with request logging and metrics.
*/
package router
