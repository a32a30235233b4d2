// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Testero API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - DiagnosticHandler: Diagnostic start/answer/complete, resume, status, summary
  - PracticeHandler: Domain-targeted practice sessions
  - DashboardHandler: Dashboard stats and readiness summary
  - QuestionsHandler: Single rotating question for quick practice
  - StudyPathHandler: Study path generation and prefill
  - AccountHandler: Anonymous session claims and billing status

Handlers that gate on subscriptions also take a billing.Checker:

	diagnosticHandler := handlers.NewDiagnosticHandler(db, cfg, checker)

# Identity

Signed-in callers send a bearer access token. Guests are tracked by an
anonymous session id, read from the request body, the anonymousSessionId
query parameter, the X-Anonymous-Session-ID header, or the
testero_anonymous_session_id cookie, in that order. A session owned by
a user is only visible to that user; a guest session only to the matching
anonymous id.

# Diagnostic Flow

	POST /api/diagnostic {action: start}    → blueprint-weighted questions
	POST /api/diagnostic {action: answer}   → grade against the snapshot
	POST /api/diagnostic {action: complete} → score and recommendations
	GET  /api/diagnostic/summary/{sessionId}

Questions are copied into the session when it starts, so later edits to
the question bank do not change an in-flight session.

# Practice Flow

	POST /api/practice/session                       → even split over domains
	POST /api/practice/session/{sessionId}/answer    → upsert one answer
	POST /api/practice/session/{sessionId}/complete  → bulk answers, close
	GET  /api/practice/session/{sessionId}/summary   → explanations, breakdown

Free accounts get a weekly quota; subscribers are unmetered.

# Errors

Errors are JSON {"error": status text, "message": detail}. Billing
denials carry a machine readable code (PAYWALL, FREE_QUOTA_EXCEEDED)
instead of a message.
*/
package handlers
