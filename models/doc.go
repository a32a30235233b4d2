// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request and response types for the API.

# Request Types

Types for parsing incoming JSON, validated with go-playground/validator
struct tags:

  - DiagnosticRequest: action, sessionId, data (start/answer/complete)
  - CreateDiagnosticSessionRequest: examKey, blueprintVersion, betaVariant, source, numQuestions
  - CreatePracticeSessionRequest: examKey, domainCodes, questionCount, source, sourceSessionId
  - PracticeAnswerRequest: questionId, selectedLabel
  - CompletePracticeRequest: answers (questionId -> label)
  - SubmitQuestionRequest: questionId, selectedOptionKey
  - StudyPathRequest: score, domains
  - ClaimAnonymousSessionsRequest: anonymousSessionId

# Response Types

Responses use camelCase keys. Snapshot questions are returned as
QuestionView (id, stem, options) and never carry the correct label until
the session is graded. ErrorResponse carries error, message and an
optional machine-readable code such as PAYWALL or FREE_QUOTA_EXCEEDED.

# Constants

Diagnostic session states:

	SessionNotFound     = "not_found"
	SessionExpired      = "expired"
	SessionUnauthorized = "unauthorized"
	SessionCompleted    = "completed"
	SessionActive       = "active"

Question count bounds:

	diagnostic: 1..30, default 20
	practice:   5..20, default 10
*/
package models
