// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/selection"
)

// Snapshot tables and the column linking a snapshot to its canonical
// question
const (
	diagnosticSnapshots = "diagnostic_questions"
	practiceSnapshots   = "practice_questions"
)

var snapshotSourceColumn = map[string]string{
	diagnosticSnapshots: "original_question_id",
	practiceSnapshots:   "canonical_question_id",
}

// requireUser resolves the bearer token and writes 401 when there is none
func requireUser(w http.ResponseWriter, r *http.Request, secret string) (string, bool) {
	userID := auth.UserID(r, secret)
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}

// requireSubscriber applies the billing gate for route and writes 403
// PAYWALL when it blocks
func requireSubscriber(w http.ResponseWriter, r *http.Request, checker *billing.Checker, userID, route, paywallSecret string) bool {
	res := checker.RequireSubscriber(r.Context(), userID, route, auth.HasValidGrace(r, paywallSecret))
	if !res.Allowed {
		middleware.CodeResponse(w, http.StatusForbidden, res.Code)
		return false
	}
	return true
}

func optionsOf(q selection.Question) []models.Option {
	opts := make([]models.Option, 0, len(q.Answers))
	for _, a := range q.Answers {
		opts = append(opts, models.Option{Label: a.Label, Text: a.Text})
	}
	return opts
}

func decodeOptions(raw string) []models.Option {
	var opts []models.Option
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		slog.Warn("failed to decode snapshot options", "error", err)
		return []models.Option{}
	}
	return opts
}

// insertSnapshots copies the selected questions into a session's snapshot
// table inside tx, preserving selection order
func insertSnapshots(ctx context.Context, tx *sql.Tx, table, sessionID string, questions []selection.Question) ([]models.QuestionView, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, %s, stem, options, correct_label, domain_id, domain_code, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, table, snapshotSourceColumn[table])

	views := make([]models.QuestionView, 0, len(questions))
	for i, q := range questions {
		opts := optionsOf(q)
		optsJSON, err := json.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}

		snapshotID := uuid.NewString()
		_, err = tx.ExecContext(ctx, query,
			snapshotID, sessionID, q.ID, q.Stem, string(optsJSON), q.CorrectLabel(),
			nullString(q.DomainID), nullString(q.DomainCode), i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert snapshot: %w", err)
		}

		views = append(views, models.QuestionView{ID: snapshotID, Stem: q.Stem, Options: opts})
	}
	return views, nil
}

// loadSnapshotViews returns a session's snapshot questions without answers
func loadSnapshotViews(ctx context.Context, db *sql.DB, table, sessionID string) ([]models.QuestionView, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, stem, options
		FROM %s
		WHERE session_id = $1
		ORDER BY position
	`, table), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []models.QuestionView{}
	for rows.Next() {
		var v models.QuestionView
		var opts string
		if err := rows.Scan(&v.ID, &v.Stem, &opts); err != nil {
			return nil, err
		}
		v.Options = decodeOptions(opts)
		views = append(views, v)
	}
	return views, rows.Err()
}

// explanationFor returns the canonical explanation text of a question, or
// nil when it has none
func explanationFor(ctx context.Context, db *sql.DB, questionID string) (*string, error) {
	var text string
	err := db.QueryRowContext(ctx, `
		SELECT explanation_text
		FROM explanations
		WHERE question_id = $1
		LIMIT 1
	`, questionID).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &text, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func utcNow() time.Time {
	return time.Now().UTC()
}
