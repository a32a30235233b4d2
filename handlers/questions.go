// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testero/testero-api/cliparse"
	"github.com/testero/testero-api/middleware"
	"github.com/testero/testero-api/models"
)

// questionSampleSize bounds the candidate pool for quick practice
const questionSampleSize = 50

// QuestionsHandler serves single rotating questions outside of any session
type QuestionsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	now func() time.Time
}

func NewQuestionsHandler(db *sql.DB, cfg cliparse.Config) *QuestionsHandler {
	return &QuestionsHandler{db: db, cfg: cfg, now: time.Now}
}

type candidateQuestion struct {
	ID    string
	Stem  string
	Topic sql.NullString
}

// rotationIndex spreads users across the sample and moves each user on
// every ten minutes
func rotationIndex(userID string, now time.Time, n int) int {
	sum := 0
	for _, r := range userID {
		sum += int(r)
	}
	slot := int(now.Unix() / 600)
	return (sum + now.Hour() + slot) % n
}

func parseExcludeIDs(raw string) map[string]bool {
	ids := make(map[string]bool)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// GetCurrent handles GET /api/questions/current
func (h *QuestionsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	exclude := parseExcludeIDs(q.Get("excludeIds"))

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	topic := strings.TrimSpace(q.Get("topic"))
	hasExplanation := !strings.EqualFold(q.Get("hasExplanation"), "false")

	difficulty := ""
	if raw := q.Get("difficulty"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 || d > 5 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid difficulty (must be 1-5)")
			return
		}
		difficulty = strconv.Itoa(d)
	}

	candidates, err := h.sampleQuestions(ctx, topic, difficulty, hasExplanation)
	if err != nil {
		slog.Error("failed to sample questions", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch questions")
		return
	}
	if len(candidates) == 0 {
		slog.Info("no eligible questions", "user_id", userID, "topic", topic, "difficulty", difficulty)
		middleware.ErrorResponse(w, http.StatusNotFound, "No eligible questions with explanations.")
		return
	}

	// Circular scan from the rotation start, skipping excluded IDs
	start := rotationIndex(userID, h.now(), len(candidates))
	chosen := -1
	for offset := range len(candidates) {
		i := (start + offset) % len(candidates)
		if !exclude[candidates[i].ID] {
			chosen = i
			break
		}
	}
	if chosen == -1 {
		middleware.ErrorResponse(w, http.StatusNotFound, "No eligible questions available given exclusions.")
		return
	}
	question := candidates[chosen]

	options, err := h.questionOptions(ctx, question.ID)
	if err != nil {
		slog.Error("failed to fetch options", "question_id", question.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Error fetching options.")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CurrentQuestionResponse{
		ID:      question.ID,
		Stem:    question.Stem,
		Topic:   question.Topic.String,
		Options: options,
	})
}

func (h *QuestionsHandler) sampleQuestions(ctx context.Context, topic, difficulty string, hasExplanation bool) ([]candidateQuestion, error) {
	query := `
		SELECT q.id, q.stem, q.topic
		FROM questions q
		WHERE q.status = 'ACTIVE'`
	var args []any
	if topic != "" {
		args = append(args, topic)
		query += fmt.Sprintf(" AND q.topic = $%d", len(args))
	}
	if difficulty != "" {
		args = append(args, difficulty)
		query += fmt.Sprintf(" AND q.difficulty = $%d", len(args))
	}
	if hasExplanation {
		query += " AND EXISTS (SELECT 1 FROM explanations e WHERE e.question_id = q.id)"
	}
	args = append(args, questionSampleSize)
	query += fmt.Sprintf(" ORDER BY q.id LIMIT $%d", len(args))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidateQuestion
	for rows.Next() {
		var c candidateQuestion
		if err := rows.Scan(&c.ID, &c.Stem, &c.Topic); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (h *QuestionsHandler) questionOptions(ctx context.Context, questionID string) ([]models.Option, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT choice_label, choice_text
		FROM answers
		WHERE question_id = $1
		ORDER BY choice_label
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.Label, &o.Text); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// Submit handles POST /api/questions/submit
func (h *QuestionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SubmitQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing questionId or selectedOptionKey.")
		return
	}

	userID, ok := requireUser(w, r, h.cfg.JWTSecret)
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT choice_label, is_correct
		FROM answers
		WHERE question_id = $1
	`, req.QuestionID)
	if err != nil {
		slog.Error("failed to fetch answers", "question_id", req.QuestionID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch options")
		return
	}
	found := 0
	correctLabel := ""
	for rows.Next() {
		var label string
		var isCorrect bool
		if err := rows.Scan(&label, &isCorrect); err != nil {
			rows.Close()
			slog.Error("failed to scan answer", "question_id", req.QuestionID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch options")
			return
		}
		found++
		if isCorrect && correctLabel == "" {
			correctLabel = label
		}
	}
	rows.Close()

	if found == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "No options found for this question.")
		return
	}
	if correctLabel == "" {
		slog.Error("question has no correct answer", "question_id", req.QuestionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "No correct option found for this question.")
		return
	}

	isCorrect := req.SelectedOptionKey == correctLabel

	explanation := ""
	text, err := explanationFor(ctx, h.db, req.QuestionID)
	if err != nil {
		slog.Warn("failed to fetch explanation", "question_id", req.QuestionID, "error", err)
	} else if text != nil {
		explanation = *text
	}

	h.recordAttempt(ctx, userID, req, isCorrect)
	middleware.RecordAnswer(middleware.KindQuestion, isCorrect)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitQuestionResponse{
		IsCorrect:        isCorrect,
		CorrectOptionKey: correctLabel,
		ExplanationText:  explanation,
	})
}

// recordAttempt stores the attempt with the question's topic and
// difficulty. Failures are logged only.
func (h *QuestionsHandler) recordAttempt(ctx context.Context, userID string, req models.SubmitQuestionRequest, isCorrect bool) {
	var topic, difficulty sql.NullString
	err := h.db.QueryRowContext(ctx, `
		SELECT topic, difficulty
		FROM questions
		WHERE id = $1
	`, req.QuestionID).Scan(&topic, &difficulty)
	if err != nil && err != sql.ErrNoRows {
		slog.Warn("failed to fetch question metadata", "question_id", req.QuestionID, "error", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO practice_attempts (id, user_id, question_id, selected_label, is_correct, topic, difficulty, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), userID, req.QuestionID, req.SelectedOptionKey, isCorrect, topic, difficulty, h.now().UTC())
	if err != nil {
		slog.Error("practice_attempts insert failed", "user_id", userID, "question_id", req.QuestionID, "error", err)
	}
}
