// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/testero/testero-api/blueprint"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/readiness"
)

// Dashboard window sizes
const (
	dashboardDiagnostics = 10
	dashboardRecentShown = 3
)

type DashboardHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDashboardHandler(db *sql.DB, cfg cliparse.Config) *DashboardHandler {
	return &DashboardHandler{db: db, cfg: cfg}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	sessions, err := h.recentDiagnostics(ctx, userID)
	if err != nil {
		slog.Error("failed to fetch diagnostic sessions", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch diagnostic data")
		return
	}

	var avgDiagnostic *float64
	if len(sessions) > 0 {
		total := 0
		for _, s := range sessions {
			total += s.Score
		}
		avg := float64(total) / float64(len(sessions))
		avgDiagnostic = &avg
	}

	practice := h.practiceStats(ctx, userID)
	var practiceAccuracy *float64
	if practice.TotalQuestionsAnswered > 0 {
		acc := float64(practice.AccuracyPercentage)
		practiceAccuracy = &acc
	}

	recent := sessions
	if len(recent) > dashboardRecentShown {
		recent = recent[:dashboardRecentShown]
	}

	middleware.JSONResponse(w, http.StatusOK, models.DashboardResponse{
		Status: "ok",
		Data: models.DashboardData{
			Diagnostic: models.DiagnosticStats{
				TotalSessions:  len(sessions),
				RecentSessions: recent,
			},
			Practice:       practice,
			ReadinessScore: readiness.Score(avgDiagnostic, practiceAccuracy),
		},
	})
}

// recentDiagnostics scores the user's latest completed diagnostics from
// their recorded responses, newest first
func (h *DashboardHandler) recentDiagnostics(ctx context.Context, userID string) ([]models.RecentSession, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, exam_type, question_count, completed_at
		FROM diagnostics_sessions
		WHERE user_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $2
	`, userID, dashboardDiagnostics)
	if err != nil {
		return nil, err
	}

	sessions := []models.RecentSession{}
	var questionCounts []int
	for rows.Next() {
		var s models.RecentSession
		var questionCount int
		if err := rows.Scan(&s.ID, &s.ExamType, &questionCount, &s.CompletedAt); err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, s)
		questionCounts = append(questionCounts, questionCount)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range sessions {
		answered, correct, err := h.responseCounts(ctx, sessions[i].ID)
		if err != nil {
			slog.Error("failed to fetch diagnostic responses", "session_id", sessions[i].ID, "error", err)
			continue
		}
		total := answered
		if answered == 0 {
			total = questionCounts[i]
		}
		sessions[i].TotalQuestions = total
		sessions[i].CorrectAnswers = correct
		sessions[i].Score = readiness.Percent(correct, total)
	}
	return sessions, nil
}

func (h *DashboardHandler) responseCounts(ctx context.Context, sessionID string) (answered, correct int, err error) {
	err = h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM diagnostic_responses
		WHERE session_id = $1
	`, sessionID).Scan(&answered, &correct)
	return answered, correct, err
}

// practiceStats summarises quick-practice attempts. Failures are logged
// and leave the stats empty.
func (h *DashboardHandler) practiceStats(ctx context.Context, userID string) models.PracticeStats {
	var stats models.PracticeStats

	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM practice_attempts
		WHERE user_id = $1
	`, userID).Scan(&stats.TotalQuestionsAnswered, &stats.CorrectAnswers)
	if err != nil {
		slog.Error("failed to fetch practice attempt counts", "user_id", userID, "error", err)
		return models.PracticeStats{}
	}
	stats.AccuracyPercentage = readiness.Percent(stats.CorrectAnswers, stats.TotalQuestionsAnswered)

	var last time.Time
	err = h.db.QueryRowContext(ctx, `
		SELECT answered_at
		FROM practice_attempts
		WHERE user_id = $1
		ORDER BY answered_at DESC
		LIMIT 1
	`, userID).Scan(&last)
	switch {
	case err == nil:
		stats.LastPracticeDate = &last
	case err != sql.ErrNoRows:
		slog.Error("failed to fetch last practice date", "user_id", userID, "error", err)
	}

	return stats
}

// GetSummary handles GET /api/dashboard/summary?examKey=
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	examKey := r.URL.Query().Get("examKey")
	if examKey == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "examKey query parameter is required")
		return
	}
	if examKey != blueprint.PMLEExamKey {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unsupported exam key: "+examKey+". Only 'pmle' is currently supported")
		return
	}

	empty := models.ExamReadinessSummary{ExamKey: examKey}

	var completed int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM diagnostics_sessions
		WHERE user_id = $1 AND exam_id = $2 AND completed_at IS NOT NULL
	`, userID, blueprint.PMLEExamID).Scan(&completed)
	if err != nil {
		slog.Error("failed to count diagnostics", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch diagnostic data")
		return
	}
	if completed == 0 {
		middleware.JSONResponse(w, http.StatusOK, models.DashboardSummaryResponse{Status: "ok", Data: empty})
		return
	}

	var sessionID string
	var questionCount int
	var completedAt time.Time
	err = h.db.QueryRowContext(ctx, `
		SELECT id, question_count, completed_at
		FROM diagnostics_sessions
		WHERE user_id = $1 AND exam_id = $2 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1
	`, userID, blueprint.PMLEExamID).Scan(&sessionID, &questionCount, &completedAt)
	if err != nil {
		slog.Error("failed to fetch latest diagnostic", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch diagnostic data")
		return
	}

	var answered, correct int
	err = h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM diagnostic_responses
		WHERE session_id = $1
	`, sessionID).Scan(&answered, &correct)
	if err != nil {
		slog.Error("failed to fetch diagnostic responses", "session_id", sessionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch diagnostic responses")
		return
	}

	total := answered
	if total == 0 {
		total = questionCount
	}
	score := readiness.Percent(correct, total)
	tier := readiness.ExamTier(score)

	middleware.JSONResponse(w, http.StatusOK, models.DashboardSummaryResponse{
		Status: "ok",
		Data: models.ExamReadinessSummary{
			ExamKey:                   examKey,
			CurrentReadinessScore:     score,
			CurrentReadinessTier:      &tier,
			LastDiagnosticDate:        &completedAt,
			LastDiagnosticSessionID:   &sessionID,
			TotalDiagnosticsCompleted: completed,
			HasCompletedDiagnostic:    true,
		},
	})
}
