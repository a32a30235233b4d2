// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/blueprint"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/db"
)

// TestJWTSecret signs access tokens in tests.
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    ":memory:",
		DatabaseType:   db.TypeSQLite,
		JWTSecret:      TestJWTSecret,
		IPHashSalt:     "test-ip-salt",
		PaywallSecret:  "test-paywall-secret",
		Billing:        "off",
		SessionTimeout: 30 * time.Minute,
	}
}

// DomainID is the exam_domains.id used for a seeded domain code.
func DomainID(code string) string {
	return "dom-" + strings.ToLower(code)
}

// SeedDomains inserts the PMLE blueprint domains
func SeedDomains(t *testing.T, conn *sql.DB) {
	t.Helper()

	for _, d := range blueprint.PMLE() {
		CreateTestDomain(t, conn, d.Code, d.DisplayName)
	}
}

// CreateTestDomain inserts one exam domain
func CreateTestDomain(t *testing.T, conn *sql.DB, code, name string) string {
	t.Helper()

	id := DomainID(code)
	_, err := conn.Exec(`
		INSERT INTO exam_domains (id, code, name)
		VALUES ($1, $2, $3)
	`, id, code, name)
	if err != nil {
		t.Fatalf("Failed to create test domain: %v", err)
	}
	return id
}

// QuestionOpts tweaks a seeded question.
type QuestionOpts struct {
	Exam         string // defaults to the PMLE exam code
	Status       string // defaults to ACTIVE
	ReviewStatus string // defaults to GOOD
	Topic        string
	Difficulty   string
	CorrectLabel string // defaults to A
	Explanation  string // no explanation row when empty
}

// CreateTestQuestion inserts a question with four answers A-D into the
// domain with the given code and returns its ID
func CreateTestQuestion(t *testing.T, conn *sql.DB, domainCode string, opts QuestionOpts) string {
	t.Helper()

	if opts.Exam == "" {
		opts.Exam = blueprint.PMLEExamCode
	}
	if opts.Status == "" {
		opts.Status = "ACTIVE"
	}
	if opts.ReviewStatus == "" {
		opts.ReviewStatus = "GOOD"
	}
	if opts.CorrectLabel == "" {
		opts.CorrectLabel = "A"
	}

	questionID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO questions (id, exam, domain_id, stem, difficulty, topic, status, review_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, questionID, opts.Exam, DomainID(domainCode), "Question "+questionID, nullable(opts.Difficulty),
		nullable(opts.Topic), opts.Status, opts.ReviewStatus)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	for _, label := range []string{"A", "B", "C", "D"} {
		answerID, _ := auth.GenerateID(12)
		_, err := conn.Exec(`
			INSERT INTO answers (id, question_id, choice_label, choice_text, is_correct)
			VALUES ($1, $2, $3, $4, $5)
		`, answerID, questionID, label, "Answer "+label, label == opts.CorrectLabel)
		if err != nil {
			t.Fatalf("Failed to create test answer: %v", err)
		}
	}

	if opts.Explanation != "" {
		explanationID, _ := auth.GenerateID(12)
		_, err := conn.Exec(`
			INSERT INTO explanations (id, question_id, explanation_text)
			VALUES ($1, $2, $3)
		`, explanationID, questionID, opts.Explanation)
		if err != nil {
			t.Fatalf("Failed to create test explanation: %v", err)
		}
	}

	return questionID
}

// SeedQuestionBank seeds the PMLE domains and perDomain explained
// questions in each
func SeedQuestionBank(t *testing.T, conn *sql.DB, perDomain int) {
	t.Helper()

	SeedDomains(t, conn)
	for _, d := range blueprint.PMLE() {
		for i := range perDomain {
			CreateTestQuestion(t, conn, d.Code, QuestionOpts{
				Topic:       d.DisplayName,
				Explanation: fmt.Sprintf("Because %s #%d", d.Code, i),
			})
		}
	}
}

// CreateTestSubscription inserts a subscription row for a user
func CreateTestSubscription(t *testing.T, conn *sql.DB, userID, status string, cancelAtPeriodEnd bool, periodEnd time.Time) string {
	t.Helper()

	id, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO user_subscriptions (id, user_id, status, cancel_at_period_end, current_period_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, status, cancelAtPeriodEnd, periodEnd.UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}
	return id
}

// AuthHeaders returns request headers authenticating as userID
func AuthHeaders(t *testing.T, userID string) map[string]string {
	t.Helper()

	token, err := auth.IssueAccessToken(userID, TestJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
