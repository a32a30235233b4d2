// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
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

// Practice answers may use up to six choices
var practiceLabels = []string{"A", "B", "C", "D", "E", "F"}

type PracticeHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	checker *billing.Checker
	pool    selection.Pool
	bp      blueprint.Blueprint
	now     func() time.Time
}

func NewPracticeHandler(db *sql.DB, cfg cliparse.Config, checker *billing.Checker) *PracticeHandler {
	return &PracticeHandler{
		db:      db,
		cfg:     cfg,
		checker: checker,
		pool:    selection.NewSQLPool(db),
		bp:      blueprint.PMLE(),
		now:     utcNow,
	}
}

type practiceSession struct {
	ID              string
	UserID          string
	Exam            string
	Source          string
	SourceSessionID sql.NullString
	QuestionCount   int
	CreatedAt       time.Time
	CompletedAt     sql.NullTime
}

// loadSession returns nil when the session does not exist
func (h *PracticeHandler) loadSession(ctx context.Context, sessionID string) (*practiceSession, error) {
	var s practiceSession
	err := h.db.QueryRowContext(ctx, `
		SELECT id, user_id, exam, source, source_session_id, question_count, created_at, completed_at
		FROM practice_sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &s.Exam, &s.Source, &s.SourceSessionID, &s.QuestionCount,
		&s.CreatedAt, &s.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ownedSession loads a session for userID, writing 404 or 403 and
// returning nil when it is missing or belongs to someone else
func (h *PracticeHandler) ownedSession(w http.ResponseWriter, r *http.Request, userID string) *practiceSession {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return nil
	}
	// Session ids are always UUIDs; anything else cannot exist.
	if !auth.IsUUID(sessionID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return nil
	}

	session, err := h.loadSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to query practice session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return nil
	}
	if session == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return nil
	}
	if session.UserID != userID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Unauthorized to access this session")
		return nil
	}
	return session
}

// CreateSession handles POST /api/practice/session
func (h *PracticeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	var req models.CreatePracticeSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	questionCount := models.DefaultPracticeQuestions
	if req.QuestionCount != nil {
		questionCount = *req.QuestionCount
	}
	if req.Source == "" {
		req.Source = models.SourceStudyPlanDomain
	}

	level := h.checker.AccessLevel(ctx, userID)
	unlimited := billing.CanUseFeature(level, billing.FeaturePracticeSession)
	freeQuota := billing.CanUseFeature(level, billing.FeaturePracticeFreeQuota)

	if !unlimited && !freeQuota {
		middleware.CodeResponse(w, http.StatusForbidden, billing.CodePaywall)
		return
	}

	if !unlimited {
		quota, err := billing.CheckAndIncrementQuota(ctx, h.db, userID, req.ExamKey, questionCount, h.now())
		if err != nil {
			slog.Error("failed to check practice quota", "user_id", userID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to check practice quota")
			return
		}
		if !quota.Allowed {
			slog.Info("practice quota exceeded",
				"user_id", userID,
				"exam", req.ExamKey,
				"week_start", quota.Usage.WeekStart,
				"sessions_started", quota.Usage.SessionsStarted,
				"questions_served", quota.Usage.QuestionsServed,
			)
			middleware.CodeResponse(w, http.StatusForbidden, billing.CodeFreeQuotaExceeded)
			return
		}
	}

	result, err := selection.SelectPractice(ctx, h.pool, h.bp, req.ExamKey, req.DomainCodes, questionCount,
		selection.Options{Debug: h.cfg.DiagnosticDebug})
	if err != nil {
		slog.Error("failed to select practice questions",
			"error", err,
			"exam_key", req.ExamKey,
			"domain_codes", req.DomainCodes,
			"question_count", questionCount,
		)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Could not fetch questions for the practice session")
		return
	}

	if len(result.Questions) == 0 {
		slog.Warn("no practice questions selected", "domain_codes", req.DomainCodes, "question_count", questionCount)
		middleware.ErrorResponse(w, http.StatusNotFound, "No questions available for the requested domains")
		return
	}

	sessionID, err := h.createSession(ctx, userID, req, result.Questions)
	if err != nil {
		slog.Error("failed to create practice session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create practice session")
		return
	}

	dist := make([]models.DomainDistribution, 0, len(result.Distribution))
	for _, d := range result.Distribution {
		dist = append(dist, models.DomainDistribution{
			DomainCode:     d.DomainCode,
			SelectedCount:  d.Selected,
			RequestedCount: d.Target,
		})
	}

	slog.Info("practice session created",
		"session_id", sessionID,
		"user_id", userID,
		"source", req.Source,
		"questions", len(result.Questions),
	)

	middleware.JSONResponse(w, http.StatusOK, models.CreatePracticeSessionResponse{
		SessionID:          sessionID,
		Route:              "/practice/session/" + sessionID,
		QuestionCount:      len(result.Questions),
		DomainDistribution: dist,
	})
}

func (h *PracticeHandler) createSession(ctx context.Context, userID string, req models.CreatePracticeSessionRequest, questions []selection.Question) (string, error) {
	sessionID := uuid.NewString()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO practice_sessions (id, user_id, exam, exam_id, source, source_session_id, question_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sessionID, userID, req.ExamKey, blueprint.PMLEExamID, req.Source, nullString(req.SourceSessionID),
		len(questions), h.now())
	if err != nil {
		return "", err
	}

	if _, err := insertSnapshots(ctx, tx, practiceSnapshots, sessionID, questions); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	middleware.RecordSessionCreated(middleware.KindPractice)
	return sessionID, nil
}

// GetSession handles GET /api/practice/session/{sessionId}
func (h *PracticeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	session := h.ownedSession(w, r, userID)
	if session == nil {
		return
	}
	if session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session already completed")
		return
	}

	views, err := loadSnapshotViews(r.Context(), h.db, practiceSnapshots, session.ID)
	if err != nil {
		slog.Error("failed to load practice questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session questions")
		return
	}
	if len(views) == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "No questions found for this session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetPracticeSessionResponse{
		Session: models.PracticeSessionView{
			ID:              session.ID,
			UserID:          session.UserID,
			Exam:            session.Exam,
			Questions:       views,
			StartedAt:       session.CreatedAt,
			QuestionCount:   session.QuestionCount,
			Source:          session.Source,
			SourceSessionID: stringPtr(session.SourceSessionID),
		},
	})
}

func normalizeLabel(label string) (string, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	return label, slices.Contains(practiceLabels, label)
}

// upsertPracticeResponse records an answer, replacing any earlier one for the same
// question. It reports whether a response already existed.
func upsertPracticeResponse(ctx context.Context, db execQuerier, sessionID, questionID, label string, isCorrect bool, now time.Time) (bool, error) {
	var existing int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM practice_responses WHERE session_id = $1 AND question_id = $2
	`, sessionID, questionID).Scan(&existing)
	if err != nil {
		return false, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO practice_responses (id, session_id, question_id, selected_label, is_correct, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, question_id) DO UPDATE
		SET selected_label = excluded.selected_label,
		    is_correct = excluded.is_correct,
		    responded_at = excluded.responded_at
	`, uuid.NewString(), sessionID, questionID, label, isCorrect, now)
	if err != nil {
		return false, err
	}
	return existing > 0, nil
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SubmitAnswer handles POST /api/practice/session/{sessionId}/answer
func (h *PracticeHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	var req models.PracticeAnswerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}
	label, valid := normalizeLabel(req.SelectedLabel)
	if !valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "selectedLabel must be one of A-F")
		return
	}

	session := h.ownedSession(w, r, userID)
	if session == nil {
		return
	}
	if session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session already completed")
		return
	}

	var questionSession, correctLabel string
	err := h.db.QueryRowContext(ctx, `
		SELECT session_id, correct_label FROM practice_questions WHERE id = $1
	`, req.QuestionID).Scan(&questionSession, &correctLabel)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		slog.Error("failed to query practice question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if questionSession != session.ID {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Question does not belong to this session")
		return
	}

	isCorrect := label == correctLabel
	updated, err := upsertPracticeResponse(ctx, h.db, session.ID, req.QuestionID, label, isCorrect, h.now())
	if err != nil {
		slog.Error("failed to save practice answer", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save answer")
		return
	}
	middleware.RecordAnswer(middleware.KindPractice, isCorrect)

	middleware.JSONResponse(w, http.StatusOK, models.PracticeAnswerResponse{
		Success:      true,
		IsCorrect:    isCorrect,
		CorrectLabel: correctLabel,
		Updated:      updated,
	})
}

// CompleteSession handles POST /api/practice/session/{sessionId}/complete
func (h *PracticeHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	var req models.CompletePracticeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	answers := make(map[string]string, len(req.Answers))
	for questionID, raw := range req.Answers {
		label, valid := normalizeLabel(raw)
		if !valid {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid answer for question "+questionID)
			return
		}
		answers[questionID] = label
	}

	session := h.ownedSession(w, r, userID)
	if session == nil {
		return
	}
	if session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session already completed")
		return
	}

	correctLabels, err := h.correctLabels(ctx, session.ID)
	if err != nil {
		slog.Error("failed to load practice questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session questions")
		return
	}

	completedAt := h.now()
	if err := h.applyAnswers(ctx, session.ID, answers, correctLabels, completedAt); err != nil {
		slog.Error("failed to complete practice session", "session_id", session.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to complete session")
		return
	}

	var answered, correct int
	err = h.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM practice_responses
		WHERE session_id = $1
	`, session.ID).Scan(&answered, &correct)
	if err != nil {
		slog.Error("failed to score practice session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to score session")
		return
	}

	slog.Info("practice session completed",
		"session_id", session.ID,
		"answered", answered,
		"correct", correct,
	)

	middleware.JSONResponse(w, http.StatusOK, models.CompletePracticeResponse{
		SessionID:      session.ID,
		TotalQuestions: session.QuestionCount,
		Answered:       answered,
		CorrectAnswers: correct,
		Score:          readiness.Percent(correct, session.QuestionCount),
		CompletedAt:    completedAt,
	})
}

// correctLabels maps each snapshot question of a session to its answer
func (h *PracticeHandler) correctLabels(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, correct_label FROM practice_questions WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		labels[id] = label
	}
	return labels, rows.Err()
}

// applyAnswers stores the bulk answers and marks the session completed in
// one transaction. Answers to questions outside the session are skipped.
func (h *PracticeHandler) applyAnswers(ctx context.Context, sessionID string, answers, correctLabels map[string]string, now time.Time) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	questionIDs := make([]string, 0, len(answers))
	for id := range answers {
		questionIDs = append(questionIDs, id)
	}
	slices.Sort(questionIDs)

	for _, questionID := range questionIDs {
		correctLabel, ok := correctLabels[questionID]
		if !ok {
			slog.Warn("answer for question outside session", "session_id", sessionID, "question_id", questionID)
			continue
		}
		isCorrect := answers[questionID] == correctLabel
		if _, err := upsertPracticeResponse(ctx, tx, sessionID, questionID, answers[questionID], isCorrect, now); err != nil {
			return err
		}
		middleware.RecordAnswer(middleware.KindPractice, isCorrect)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE practice_sessions SET completed_at = $1 WHERE id = $2
	`, now, sessionID); err != nil {
		return err
	}

	return tx.Commit()
}

// Summary handles GET /api/practice/session/{sessionId}/summary
func (h *PracticeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := auth.UserID(r, h.cfg.JWTSecret)
	level := h.checker.AccessLevel(ctx, userID)
	if !billing.CanUseFeature(level, billing.FeaturePracticeSession) {
		middleware.CodeResponse(w, http.StatusForbidden, billing.CodePaywall)
		return
	}
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	session := h.ownedSession(w, r, userID)
	if session == nil {
		return
	}
	if !session.CompletedAt.Valid {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Session not completed yet")
		return
	}

	questions, canonicalIDs, items, err := h.reviewQuestions(ctx, session.ID)
	if err != nil {
		slog.Error("failed to load practice review", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load session data")
		return
	}

	if billing.CanUseFeature(level, billing.FeatureExplanations) {
		for i, canonicalID := range canonicalIDs {
			if canonicalID == "" {
				continue
			}
			explanation, err := explanationFor(ctx, h.db, canonicalID)
			if err != nil {
				slog.Error("failed to query explanation", "question_id", canonicalID, "error", err)
				continue
			}
			questions[i].Explanation = explanation
		}
	}

	correct := 0
	for _, q := range questions {
		if q.IsCorrect {
			correct++
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.PracticeSummaryResponse{
		Summary: models.PracticeSummary{
			SessionID:       session.ID,
			Exam:            session.Exam,
			TotalQuestions:  len(questions),
			CorrectAnswers:  correct,
			Score:           readiness.Percent(correct, len(questions)),
			StartedAt:       session.CreatedAt,
			CompletedAt:     session.CompletedAt.Time,
			Source:          session.Source,
			SourceSessionID: stringPtr(session.SourceSessionID),
			Questions:       questions,
		},
		DomainBreakdown: readiness.Breakdown(items, nil),
	})
}

// reviewQuestions loads the graded questions of a session along with each
// question's canonical id and, for questions with a domain, a breakdown
// item keyed by the domain's display name
func (h *PracticeHandler) reviewQuestions(ctx context.Context, sessionID string) ([]models.ReviewQuestion, []string, []readiness.Item, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT pq.id, pq.stem, pq.options, pq.correct_label, pq.canonical_question_id, pq.domain_code,
		       pr.selected_label, pr.is_correct
		FROM practice_questions pq
		LEFT JOIN practice_responses pr ON pr.question_id = pq.id AND pr.session_id = pq.session_id
		WHERE pq.session_id = $1
		ORDER BY pq.position
	`, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	questions := []models.ReviewQuestion{}
	var canonicalIDs []string
	var items []readiness.Item
	for rows.Next() {
		var q models.ReviewQuestion
		var opts string
		var canonicalID, domainCode, selected sql.NullString
		var isCorrect sql.NullBool
		if err := rows.Scan(&q.ID, &q.Stem, &opts, &q.CorrectAnswer, &canonicalID, &domainCode, &selected, &isCorrect); err != nil {
			return nil, nil, nil, err
		}
		q.Options = decodeOptions(opts)
		q.UserAnswer = selected.String
		q.IsCorrect = isCorrect.Valid && isCorrect.Bool

		if domainCode.Valid && domainCode.String != "" {
			name := h.bp.DisplayName(domainCode.String)
			q.Domain = &name
			items = append(items, readiness.Item{Domain: name, Correct: q.IsCorrect})
		}

		questions = append(questions, q)
		canonicalIDs = append(canonicalIDs, canonicalID.String)
	}
	return questions, canonicalIDs, items, rows.Err()
}
