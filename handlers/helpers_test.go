// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/blueprint"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/testutil"
)

func newTestChecker(t *testing.T, db *sql.DB, enforcement string) *billing.Checker {
	t.Helper()

	checker, err := billing.NewChecker(db, enforcement)
	if err != nil {
		t.Fatalf("Failed to create checker: %v", err)
	}
	return checker
}

// insertDiagnosticSession writes a session row directly. An empty userID
// or anonID is stored as NULL; completedAt may be nil.
func insertDiagnosticSession(t *testing.T, db *sql.DB, userID, anonID string, questionCount int, startedAt, expiresAt time.Time, completedAt *time.Time) string {
	t.Helper()

	id := uuid.NewString()
	var completed sql.NullTime
	if completedAt != nil {
		completed = sql.NullTime{Time: completedAt.UTC(), Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO diagnostics_sessions (id, user_id, anonymous_session_id, exam_id, exam_type, question_count, started_at, expires_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, nullString(userID), nullString(anonID), blueprint.PMLEExamID, models.DefaultExamType, questionCount,
		startedAt.UTC(), expiresAt.UTC(), completed)
	if err != nil {
		t.Fatalf("Failed to insert diagnostic session: %v", err)
	}
	return id
}

// insertDiagnosticQuestion adds a snapshot question with answer A
func insertDiagnosticQuestion(t *testing.T, db *sql.DB, sessionID, sourceID, domainCode string, position int) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO diagnostic_questions (id, session_id, original_question_id, stem, options, correct_label, domain_id, domain_code, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, sessionID, nullString(sourceID), "Snapshot "+id, `[{"label":"A","text":"yes"},{"label":"B","text":"no"}]`,
		"A", nullString(testutil.DomainID(domainCode)), nullString(domainCode), position)
	if err != nil {
		t.Fatalf("Failed to insert diagnostic question: %v", err)
	}
	return id
}

func insertDiagnosticResponse(t *testing.T, db *sql.DB, sessionID, questionID string, correct bool) {
	t.Helper()

	label := "B"
	if correct {
		label = "A"
	}
	_, err := db.Exec(`
		INSERT INTO diagnostic_responses (id, session_id, question_id, selected_label, is_correct, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), sessionID, questionID, label, correct, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert diagnostic response: %v", err)
	}
}

func insertPracticeAttempt(t *testing.T, db *sql.DB, userID string, correct bool, answeredAt time.Time) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO practice_attempts (id, user_id, question_id, selected_label, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), userID, uuid.NewString(), "A", correct, answeredAt.UTC())
	if err != nil {
		t.Fatalf("Failed to insert practice attempt: %v", err)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
