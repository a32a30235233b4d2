// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/testutil"
)

func newQuestionsHandler(t *testing.T) (*QuestionsHandler, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.SeedDomains(t, db)
	h := NewQuestionsHandler(db, testutil.GetTestConfig())
	h.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	return h, db
}

func TestRotationIndex(t *testing.T) {
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	// "ab" sums to 195
	want := (195 + 9 + int(at.Unix()/600)) % 7
	if got := rotationIndex("ab", at, 7); got != want {
		t.Errorf("rotationIndex = %d, want %d", got, want)
	}
	if rotationIndex("ab", at, 7) != rotationIndex("ab", at.Add(5*time.Minute), 7) {
		t.Error("Expected the same index within a ten minute slot")
	}
	if rotationIndex("ab", at, 1) != 0 {
		t.Error("Expected index 0 for a single candidate")
	}
}

func TestParseExcludeIDs(t *testing.T) {
	ids := parseExcludeIDs(" a, b,,c ,")
	if len(ids) != 3 || !ids["a"] || !ids["b"] || !ids["c"] {
		t.Errorf("Unexpected exclusions %v", ids)
	}
	if len(parseExcludeIDs("")) != 0 {
		t.Error("Expected no exclusions for an empty list")
	}
}

func TestGetCurrentQuestion(t *testing.T) {
	h, db := newQuestionsHandler(t)
	headers := testutil.AuthHeaders(t, "learner")

	explained := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{
		Topic: "Monitoring", Difficulty: "2", Explanation: "Drift detection",
	})
	unexplained := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{Topic: "Monitoring"})
	testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{
		Status: "DRAFT", Explanation: "Not live",
	})

	tests := []struct {
		name           string
		query          string
		headers        map[string]string
		expectedStatus int
		expectedID     string
	}{
		{"unauthenticated", "", nil, http.StatusUnauthorized, ""},
		{"default requires explanation", "", headers, http.StatusOK, explained},
		{"topic filter", "?topic=Monitoring", headers, http.StatusOK, explained},
		{"difficulty filter", "?difficulty=2", headers, http.StatusOK, explained},
		{"difficulty without match", "?difficulty=5", headers, http.StatusNotFound, ""},
		{"invalid difficulty", "?difficulty=9", headers, http.StatusBadRequest, ""},
		{"non numeric difficulty", "?difficulty=hard", headers, http.StatusBadRequest, ""},
		{"unknown topic", "?topic=Nothing", headers, http.StatusNotFound, ""},
		{"all excluded", "?excludeIds=" + explained, headers, http.StatusNotFound, ""},
		{"explanation optional", "?hasExplanation=false&excludeIds=" + explained, headers, http.StatusOK, unexplained},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.GetCurrent, testutil.MakeRequest("GET", "/api/questions/current"+tt.query, nil, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.CurrentQuestionResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.ID != tt.expectedID {
					t.Errorf("Expected question %s, got %s", tt.expectedID, resp.ID)
				}
				if len(resp.Options) != 4 || resp.Options[0].Label != "A" {
					t.Errorf("Expected options A-D, got %+v", resp.Options)
				}
				if resp.Topic != "Monitoring" {
					t.Errorf("Expected topic Monitoring, got %q", resp.Topic)
				}
			}
		})
	}
}

func TestGetCurrentQuestion_SkipsExcluded(t *testing.T) {
	h, db := newQuestionsHandler(t)
	headers := testutil.AuthHeaders(t, "learner")

	var ids []string
	for range 5 {
		ids = append(ids, testutil.CreateTestQuestion(t, db, "SERVING_AND_SCALING_MODELS", testutil.QuestionOpts{Explanation: "x"}))
	}

	seen := make(map[string]bool)
	exclude := []string{}
	for range ids {
		w := serve(h.GetCurrent, testutil.MakeRequest("GET", "/api/questions/current?excludeIds="+strings.Join(exclude, ","), nil, headers))
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.CurrentQuestionResponse
		testutil.AssertJSON(t, w, &resp)
		if seen[resp.ID] {
			t.Fatalf("Question %s served twice", resp.ID)
		}
		seen[resp.ID] = true
		exclude = append(exclude, resp.ID)
	}

	w := serve(h.GetCurrent, testutil.MakeRequest("GET", "/api/questions/current?excludeIds="+strings.Join(exclude, ","), nil, headers))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestSubmitQuestion(t *testing.T) {
	h, db := newQuestionsHandler(t)
	headers := testutil.AuthHeaders(t, "learner")

	questionID := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{
		Topic: "Monitoring", Difficulty: "3", CorrectLabel: "C", Explanation: "Because C",
	})
	bare := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{CorrectLabel: "B"})

	tests := []struct {
		name            string
		headers         map[string]string
		body            any
		expectedStatus  int
		wantCorrect     bool
		wantExplanation string
	}{
		{"correct", headers, models.SubmitQuestionRequest{QuestionID: questionID, SelectedOptionKey: "C"}, http.StatusOK, true, "Because C"},
		{"incorrect", headers, models.SubmitQuestionRequest{QuestionID: questionID, SelectedOptionKey: "A"}, http.StatusOK, false, "Because C"},
		{"no explanation", headers, models.SubmitQuestionRequest{QuestionID: bare, SelectedOptionKey: "B"}, http.StatusOK, true, ""},
		{"missing option", headers, models.SubmitQuestionRequest{QuestionID: questionID}, http.StatusBadRequest, false, ""},
		{"unauthenticated", nil, models.SubmitQuestionRequest{QuestionID: questionID, SelectedOptionKey: "C"}, http.StatusUnauthorized, false, ""},
		{"unknown question", headers, models.SubmitQuestionRequest{QuestionID: "missing", SelectedOptionKey: "C"}, http.StatusNotFound, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Submit, testutil.MakeRequest("POST", "/api/questions/submit", tt.body, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.SubmitQuestionResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.IsCorrect != tt.wantCorrect {
					t.Errorf("Expected isCorrect=%v", tt.wantCorrect)
				}
				if resp.ExplanationText != tt.wantExplanation {
					t.Errorf("Expected explanation %q, got %q", tt.wantExplanation, resp.ExplanationText)
				}
			}
		})
	}

	var attempts, correct int
	var topic, difficulty sql.NullString
	db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM practice_attempts WHERE user_id = $1
	`, "learner").Scan(&attempts, &correct)
	if attempts != 3 || correct != 2 {
		t.Errorf("Expected 3 attempts with 2 correct, got %d and %d", attempts, correct)
	}
	db.QueryRow("SELECT topic, difficulty FROM practice_attempts WHERE question_id = $1 LIMIT 1", questionID).
		Scan(&topic, &difficulty)
	if topic.String != "Monitoring" || difficulty.String != "3" {
		t.Errorf("Expected topic and difficulty snapshot, got %v %v", topic, difficulty)
	}
}

func TestSubmitQuestion_NoCorrectAnswer(t *testing.T) {
	h, db := newQuestionsHandler(t)
	questionID := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{})
	if _, err := db.Exec("UPDATE answers SET is_correct = FALSE WHERE question_id = $1", questionID); err != nil {
		t.Fatalf("Failed to clear correct answer: %v", err)
	}

	w := serve(h.Submit, testutil.MakeRequest("POST", "/api/questions/submit",
		models.SubmitQuestionRequest{QuestionID: questionID, SelectedOptionKey: "A"}, testutil.AuthHeaders(t, "learner")))
	testutil.AssertStatus(t, w, http.StatusInternalServerError)
}
