// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/readiness"
)

type StudyPathHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	now func() time.Time
}

func NewStudyPathHandler(db *sql.DB, cfg cliparse.Config) *StudyPathHandler {
	return &StudyPathHandler{db: db, cfg: cfg, now: utcNow}
}

// Generate handles POST /api/study-path
func (h *StudyPathHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.StudyPathRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	recommendations := readiness.StudyPlan(req.Domains)
	resp := models.StudyPathResponse{Status: "ok", Recommendations: recommendations}

	// Persisting is optional; the plan is returned either way
	encoded, err := json.Marshal(recommendations)
	if err != nil {
		slog.Error("failed to encode study path", "user_id", userID, "error", err)
	} else {
		id := uuid.NewString()
		_, err = h.db.ExecContext(r.Context(), `
			INSERT INTO study_paths (id, user_id, diagnostic_score, recommendations, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, id, userID, int(math.Round(req.Score)), string(encoded), h.now())
		if err != nil {
			slog.Error("failed to save study path", "user_id", userID, "error", err)
		} else {
			resp.StudyPathID = id
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Prefill handles GET /api/study-plan/prefill?diagnosticId=
func (h *StudyPathHandler) Prefill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	diagnosticID := r.URL.Query().Get("diagnosticId")
	if diagnosticID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Diagnostic ID required")
		return
	}

	var userID, anonID sql.NullString
	var completedAt sql.NullTime
	err := h.db.QueryRowContext(ctx, `
		SELECT user_id, anonymous_session_id, completed_at
		FROM diagnostics_sessions
		WHERE id = $1
	`, diagnosticID).Scan(&userID, &anonID, &completedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Diagnostic not found")
		return
	}
	if err != nil {
		slog.Error("failed to load diagnostic", "session_id", diagnosticID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !completedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Diagnostic not completed")
		return
	}

	session := diagnosticSession{UserID: userID, AnonymousSessionID: anonID}
	if !session.accessibleBy(auth.UserID(r, h.cfg.JWTSecret), auth.AnonymousSessionID(r, "")) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized")
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT q.topic, r.is_correct
		FROM diagnostic_questions dq
		LEFT JOIN questions q ON q.id = dq.original_question_id
		LEFT JOIN diagnostic_responses r ON r.question_id = dq.id AND r.session_id = dq.session_id
		WHERE dq.session_id = $1
		ORDER BY dq.position
	`, diagnosticID)
	if err != nil {
		slog.Error("failed to fetch diagnostic questions", "session_id", diagnosticID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load questions")
		return
	}
	defer rows.Close()

	var items []readiness.Item
	for rows.Next() {
		var topic sql.NullString
		var isCorrect sql.NullBool
		if err := rows.Scan(&topic, &isCorrect); err != nil {
			slog.Error("failed to scan diagnostic question", "session_id", diagnosticID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load questions")
			return
		}
		domain := topic.String
		if domain == "" {
			domain = "General"
		}
		items = append(items, readiness.Item{Domain: domain, Correct: isCorrect.Valid && isCorrect.Bool})
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate diagnostic questions", "session_id", diagnosticID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load questions")
		return
	}

	breakdown := readiness.Breakdown(items, nil)
	middleware.JSONResponse(w, http.StatusOK, models.PrefillResponse{
		DomainBreakdown:       breakdown,
		RecommendedFocusAreas: readiness.FocusAreas(breakdown),
	})
}
