// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/billing"
	"github.com/testero/testero-api/blueprint"
	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/readiness"
	"github.com/testero/testero-api/selection"
)

type DiagnosticHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	checker *billing.Checker
	pool    selection.Pool
	bp      blueprint.Blueprint
	now     func() time.Time
}

func NewDiagnosticHandler(db *sql.DB, cfg cliparse.Config, checker *billing.Checker) *DiagnosticHandler {
	return &DiagnosticHandler{
		db:      db,
		cfg:     cfg,
		checker: checker,
		pool:    selection.NewSQLPool(db),
		bp:      blueprint.PMLE(),
		now:     utcNow,
	}
}

type diagnosticSession struct {
	ID                 string
	UserID             sql.NullString
	AnonymousSessionID sql.NullString
	ExamType           string
	QuestionCount      int
	StartedAt          time.Time
	ExpiresAt          time.Time
	CompletedAt        sql.NullTime
}

// accessibleBy applies the ownership rule: a user's session belongs to that
// user, a guest session to the caller presenting its anonymous id.
func (s *diagnosticSession) accessibleBy(userID, anonID string) bool {
	if s.UserID.Valid {
		return userID == s.UserID.String
	}
	if s.AnonymousSessionID.Valid {
		return anonID == s.AnonymousSessionID.String
	}
	return true
}

func (s *diagnosticSession) expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// loadSession returns nil when the session does not exist
func (h *DiagnosticHandler) loadSession(ctx context.Context, sessionID string) (*diagnosticSession, error) {
	var s diagnosticSession
	err := h.db.QueryRowContext(ctx, `
		SELECT id, user_id, anonymous_session_id, exam_type, question_count, started_at, expires_at, completed_at
		FROM diagnostics_sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &s.AnonymousSessionID, &s.ExamType, &s.QuestionCount,
		&s.StartedAt, &s.ExpiresAt, &s.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// cleanExpiredSessions drops unfinished sessions past their expiry
func (h *DiagnosticHandler) cleanExpiredSessions(ctx context.Context) {
	res, err := h.db.ExecContext(ctx, `
		DELETE FROM diagnostics_sessions
		WHERE expires_at < $1 AND completed_at IS NULL
	`, h.now())
	if err != nil {
		slog.Error("failed to clean expired sessions", "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("expired diagnostic sessions removed", "count", n)
	}
}

// HandleAction handles POST /api/diagnostic
func (h *DiagnosticHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.cleanExpiredSessions(ctx)

	var req models.DiagnosticRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid action")
		return
	}

	userID := auth.UserID(r, h.cfg.JWTSecret)
	if !requireSubscriber(w, r, h.checker, userID, "/api/diagnostic", h.cfg.PaywallSecret) {
		return
	}

	switch req.Action {
	case models.ActionStart:
		h.start(w, r, userID, req.Data)
	case models.ActionAnswer:
		h.answer(w, r, userID, req.SessionID, req.Data)
	case models.ActionComplete:
		h.complete(w, r, userID, req.SessionID)
	}
}

// clampQuestionCount applies the default when n is absent. An explicit
// zero or negative count becomes the minimum.
func clampQuestionCount(n *int) int {
	if n == nil {
		return models.DefaultDiagnosticQuestions
	}
	return max(models.MinDiagnosticQuestions, min(*n, models.MaxDiagnosticQuestions))
}

func (h *DiagnosticHandler) start(w http.ResponseWriter, r *http.Request, userID string, raw json.RawMessage) {
	ctx := r.Context()

	var data models.StartDiagnosticData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data")
			return
		}
	}

	examType := strings.TrimSpace(data.ExamType)
	if examType == "" {
		examType = models.DefaultExamType
	}
	if !blueprint.IsPMLEExamType(examType) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid exam type: "+examType)
		return
	}
	numQuestions := clampQuestionCount(data.NumQuestions)

	anonID := ""
	if userID == "" {
		anonID = auth.AnonymousSessionID(r, data.AnonymousSessionID)
		if anonID != "" {
			resumed, err := h.resumeAnonymous(ctx, anonID)
			if err != nil {
				slog.Error("failed to look up resumable session", "error", err)
			} else if resumed != nil {
				slog.Info("diagnostic session resumed", "session_id", resumed.SessionID)
				middleware.JSONResponse(w, http.StatusOK, resumed)
				return
			}
		} else {
			anonID = auth.NewAnonymousSessionID()
		}
	}

	result, err := selection.SelectDiagnostic(ctx, h.pool, h.bp, numQuestions, selection.Options{Debug: h.cfg.DiagnosticDebug})
	if err != nil {
		slog.Error("failed to select diagnostic questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sessionID, views, expiresAt, err := h.createSession(ctx, userID, anonID, examType, result.Questions)
	if err != nil {
		slog.Error("failed to create diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start diagnostic session")
		return
	}

	if anonID != "" {
		auth.SetAnonymousCookie(w, anonID)
	}

	slog.Info("diagnostic session started",
		"session_id", sessionID,
		"user_id", userID,
		"anonymous", userID == "",
		"questions", len(views),
	)

	middleware.JSONResponse(w, http.StatusOK, models.StartDiagnosticResponse{
		SessionID:          sessionID,
		Questions:          views,
		TotalQuestions:     len(views),
		ExpiresAt:          expiresAt,
		AnonymousSessionID: anonID,
	})
}

// resumeAnonymous returns the newest unfinished, unexpired guest session
// for anonID, or nil
func (h *DiagnosticHandler) resumeAnonymous(ctx context.Context, anonID string) (*models.StartDiagnosticResponse, error) {
	var sessionID string
	var expiresAt time.Time
	err := h.db.QueryRowContext(ctx, `
		SELECT id, expires_at
		FROM diagnostics_sessions
		WHERE anonymous_session_id = $1
		  AND user_id IS NULL
		  AND completed_at IS NULL
		  AND expires_at > $2
		ORDER BY started_at DESC
		LIMIT 1
	`, anonID, h.now()).Scan(&sessionID, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	views, err := loadSnapshotViews(ctx, h.db, diagnosticSnapshots, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.StartDiagnosticResponse{
		SessionID:          sessionID,
		Questions:          views,
		TotalQuestions:     len(views),
		ExpiresAt:          expiresAt,
		AnonymousSessionID: anonID,
		Resumed:            true,
	}, nil
}

// createSession inserts the session row and its question snapshots in one
// transaction
func (h *DiagnosticHandler) createSession(ctx context.Context, userID, anonID, examType string, questions []selection.Question) (string, []models.QuestionView, time.Time, error) {
	now := h.now()
	expiresAt := now.Add(h.cfg.SessionTimeout)
	sessionID := uuid.NewString()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, time.Time{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagnostics_sessions (id, user_id, anonymous_session_id, exam_id, exam_type, question_count, started_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sessionID, nullString(userID), nullString(anonID), blueprint.PMLEExamID, examType, len(questions), now, expiresAt)
	if err != nil {
		return "", nil, time.Time{}, err
	}

	views, err := insertSnapshots(ctx, tx, diagnosticSnapshots, sessionID, questions)
	if err != nil {
		return "", nil, time.Time{}, err
	}

	if err := tx.Commit(); err != nil {
		return "", nil, time.Time{}, err
	}

	middleware.RecordSessionCreated(middleware.KindDiagnostic)
	return sessionID, views, expiresAt, nil
}

func (h *DiagnosticHandler) answer(w http.ResponseWriter, r *http.Request, userID, sessionID string, raw json.RawMessage) {
	ctx := r.Context()

	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var data models.AnswerDiagnosticData
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid answer data")
		return
	}
	if err := middleware.ValidateStruct(data); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid answer data: "+err.Error())
		return
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to query diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if session == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}
	if session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session already completed")
		return
	}
	if session.expired(h.now()) {
		middleware.ErrorResponse(w, http.StatusGone, "Session expired")
		return
	}
	if !session.accessibleBy(userID, auth.AnonymousSessionID(r, "")) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var correctLabel string
	var sourceID sql.NullString
	err = h.db.QueryRowContext(ctx, `
		SELECT correct_label, original_question_id
		FROM diagnostic_questions
		WHERE id = $1 AND session_id = $2
	`, data.QuestionID, sessionID).Scan(&correctLabel, &sourceID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found in this session")
		return
	}
	if err != nil {
		slog.Error("failed to query snapshot question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	isCorrect := data.SelectedLabel == correctLabel

	// Resubmitting an answer replaces the earlier one
	_, err = h.db.ExecContext(ctx, `
		INSERT INTO diagnostic_responses (id, session_id, question_id, selected_label, is_correct, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, question_id) DO UPDATE
		SET selected_label = excluded.selected_label,
		    is_correct = excluded.is_correct,
		    responded_at = excluded.responded_at
	`, uuid.NewString(), sessionID, data.QuestionID, data.SelectedLabel, isCorrect, h.now())
	if err != nil {
		slog.Error("failed to save diagnostic answer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save answer")
		return
	}
	middleware.RecordAnswer(middleware.KindDiagnostic, isCorrect)

	var explanation *string
	if sourceID.Valid {
		explanation, err = explanationFor(ctx, h.db, sourceID.String)
		if err != nil {
			slog.Error("failed to query explanation", "error", err)
		} else if explanation == nil {
			slog.Warn("missing explanation", "question_id", sourceID.String, "session_id", sessionID)
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.AnswerDiagnosticResponse{
		IsCorrect:     isCorrect,
		CorrectAnswer: correctLabel,
		Explanation:   explanation,
	})
}

func (h *DiagnosticHandler) complete(w http.ResponseWriter, r *http.Request, userID, sessionID string) {
	ctx := r.Context()

	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to query diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if session == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}
	if session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session already marked as completed")
		return
	}
	if session.expired(h.now()) {
		middleware.ErrorResponse(w, http.StatusGone, "Session expired")
		return
	}
	if !session.accessibleBy(userID, auth.AnonymousSessionID(r, "")) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var correct int
	err = h.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM diagnostic_responses
		WHERE session_id = $1
	`, sessionID).Scan(&correct)
	if err != nil {
		slog.Error("failed to score diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Could not retrieve answers to score")
		return
	}

	score := 0.0
	if session.QuestionCount > 0 {
		score = float64(correct) / float64(session.QuestionCount) * 100
	}

	if _, err := h.db.ExecContext(ctx, `
		UPDATE diagnostics_sessions SET completed_at = $1 WHERE id = $2
	`, h.now(), sessionID); err != nil {
		// Results are still returned
		slog.Error("failed to mark session complete", "session_id", sessionID, "error", err)
	}

	slog.Info("diagnostic session completed",
		"session_id", sessionID,
		"correct", correct,
		"total", session.QuestionCount,
	)

	middleware.JSONResponse(w, http.StatusOK, models.CompleteDiagnosticResponse{
		TotalQuestions:  session.QuestionCount,
		CorrectAnswers:  correct,
		Score:           int(math.Round(score)),
		Recommendations: readiness.DiagnosticRecommendations(score, session.ExamType),
		ExamType:        session.ExamType,
	})
}

// GetSession handles GET /api/diagnostic?sessionId=
func (h *DiagnosticHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.cleanExpiredSessions(ctx)

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID provided")
		return
	}

	userID := auth.UserID(r, h.cfg.JWTSecret)
	if !requireSubscriber(w, r, h.checker, userID, "/api/diagnostic", h.cfg.PaywallSecret) {
		return
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to query diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if session == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found or expired")
		return
	}
	if session.expired(h.now()) {
		middleware.ErrorResponse(w, http.StatusGone, "Session expired")
		return
	}
	if !session.accessibleBy(userID, auth.AnonymousSessionID(r, "")) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized to access this session")
		return
	}

	views, err := loadSnapshotViews(ctx, h.db, diagnosticSnapshots, sessionID)
	if err != nil {
		slog.Error("failed to load session questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load questions for the session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetDiagnosticResponse{
		Session: models.DiagnosticSessionView{
			ID:                 session.ID,
			UserID:             stringPtr(session.UserID),
			ExamType:           session.ExamType,
			Questions:          views,
			StartedAt:          session.StartedAt,
			CurrentQuestion:    0,
			ExpiresAt:          session.ExpiresAt,
			AnonymousSessionID: stringPtr(session.AnonymousSessionID),
		},
	})
}

// CreateSession handles POST /api/diagnostic/session
func (h *DiagnosticHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := auth.UserID(r, h.cfg.JWTSecret)
	if !requireSubscriber(w, r, h.checker, userID, "/api/diagnostic/session", h.cfg.PaywallSecret) {
		return
	}
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.CreateDiagnosticSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	if req.BlueprintVersion == "" {
		req.BlueprintVersion = "current"
	}
	if req.Source == "" {
		req.Source = models.SourceBetaWelcome
	}
	numQuestions := models.DefaultDiagnosticQuestions
	if req.NumQuestions != nil {
		numQuestions = *req.NumQuestions
	}

	result, err := selection.SelectDiagnostic(ctx, h.pool, h.bp, numQuestions, selection.Options{Debug: h.cfg.DiagnosticDebug})
	if err != nil {
		slog.Error("failed to select diagnostic questions", "error", err)
		msg := "Could not fetch questions for the diagnostic"
		if errors.Is(err, selection.ErrInsufficientQuestions) {
			msg = err.Error()
		}
		middleware.ErrorResponse(w, http.StatusInternalServerError, msg)
		return
	}

	sessionID, _, _, err := h.createSession(ctx, userID, "", models.DefaultExamType, result.Questions)
	if err != nil {
		slog.Error("failed to create diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start diagnostic session")
		return
	}

	slog.Info("diagnostic session created",
		"session_id", sessionID,
		"user_id", userID,
		"exam_key", req.ExamKey,
		"blueprint_version", req.BlueprintVersion,
		"source", req.Source,
		"beta_variant", req.BetaVariant,
		"questions", len(result.Questions),
	)

	middleware.JSONResponse(w, http.StatusOK, models.CreateSessionResponse{SessionID: sessionID})
}

// SessionStatus handles GET /api/diagnostic/session/{id}/status
func (h *DiagnosticHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.PathValue("id")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	userID := auth.UserID(r, h.cfg.JWTSecret)
	if !requireSubscriber(w, r, h.checker, userID, "/api/diagnostic/session/[id]/status", h.cfg.PaywallSecret) {
		return
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to query diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var resp models.SessionStatusResponse
	switch {
	case session == nil:
		resp = models.SessionStatusResponse{Exists: false, Status: models.SessionNotFound}
	case session.expired(h.now()):
		resp = models.SessionStatusResponse{Exists: true, Status: models.SessionExpired}
	case !session.accessibleBy(userID, auth.AnonymousSessionID(r, "")):
		resp = models.SessionStatusResponse{Exists: true, Status: models.SessionUnauthorized}
	case session.CompletedAt.Valid:
		resp = models.SessionStatusResponse{
			Exists:      true,
			Status:      models.SessionCompleted,
			CompletedAt: timePtr(session.CompletedAt),
		}
	default:
		resp = models.SessionStatusResponse{
			Exists:    true,
			Status:    models.SessionActive,
			ExamType:  session.ExamType,
			StartedAt: &session.StartedAt,
			ExpiresAt: &session.ExpiresAt,
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Summary handles GET /api/diagnostic/summary/{sessionId}
func (h *DiagnosticHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	userID := auth.UserID(r, h.cfg.JWTSecret)
	if !requireSubscriber(w, r, h.checker, userID, "/api/diagnostic/summary/[sessionId]", h.cfg.PaywallSecret) {
		return
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		slog.Error("failed to query diagnostic session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if session == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}
	if session.expired(h.now()) {
		middleware.ErrorResponse(w, http.StatusGone, "Session expired")
		return
	}
	if !session.accessibleBy(userID, auth.AnonymousSessionID(r, "")) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized to access this session")
		return
	}
	if !session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session not completed yet")
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT dq.id, dq.stem, dq.options, dq.correct_label, dq.domain_code, q.topic,
		       dr.selected_label, dr.is_correct
		FROM diagnostic_questions dq
		LEFT JOIN questions q ON q.id = dq.original_question_id
		LEFT JOIN diagnostic_responses dr ON dr.question_id = dq.id AND dr.session_id = dq.session_id
		WHERE dq.session_id = $1
		ORDER BY dq.position
	`, sessionID)
	if err != nil {
		slog.Error("failed to query session questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session data")
		return
	}
	defer rows.Close()

	questions := []models.ReviewQuestion{}
	var items []readiness.Item
	correct := 0
	for rows.Next() {
		var q models.ReviewQuestion
		var opts string
		var domainCode, topic, selected sql.NullString
		var isCorrect sql.NullBool
		if err := rows.Scan(&q.ID, &q.Stem, &opts, &q.CorrectAnswer, &domainCode, &topic, &selected, &isCorrect); err != nil {
			slog.Error("failed to scan session question", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session data")
			return
		}
		q.Options = decodeOptions(opts)
		q.UserAnswer = selected.String
		q.IsCorrect = isCorrect.Valid && isCorrect.Bool
		if q.IsCorrect {
			correct++
		}
		questions = append(questions, q)
		items = append(items, readiness.Item{Domain: h.domainKey(domainCode, topic), Correct: q.IsCorrect})
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate session questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session data")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DiagnosticSummaryResponse{
		Summary: models.DiagnosticSummary{
			SessionID:      session.ID,
			ExamType:       session.ExamType,
			TotalQuestions: session.QuestionCount,
			CorrectAnswers: correct,
			Score:          readiness.Percent(correct, session.QuestionCount),
			StartedAt:      session.StartedAt,
			CompletedAt:    session.CompletedAt.Time,
			Questions:      questions,
		},
		DomainBreakdown: readiness.Breakdown(items, nil),
	})
}

// domainKey labels a snapshot question for the breakdown: the blueprint
// display name of its domain, else its topic, else "General"
func (h *DiagnosticHandler) domainKey(domainCode, topic sql.NullString) string {
	if domainCode.Valid {
		if d, ok := h.bp.Lookup(domainCode.String); ok {
			return d.DisplayName
		}
	}
	if topic.Valid && topic.String != "" {
		return topic.String
	}
	return "General"
}
