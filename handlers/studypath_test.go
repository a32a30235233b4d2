// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/testero/testero-api/auth"
	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/readiness"
	"github.com/testero/testero-api/testutil"
)

func TestGenerateStudyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewStudyPathHandler(db, testutil.GetTestConfig())

	valid := map[string]any{
		"score": 55,
		"domains": []readiness.DomainScore{
			{Domain: "Model Optimization", Correct: 4, Total: 5, Percentage: 80},
			{Domain: "Neural Networks", Correct: 1, Total: 5, Percentage: 20},
			{Domain: "Data Pipelines", Correct: 3, Total: 5, Percentage: 60},
		},
	}

	tests := []struct {
		name           string
		headers        map[string]string
		body           any
		expectedStatus int
	}{
		{"valid", testutil.AuthHeaders(t, "learner"), valid, http.StatusOK},
		{"unauthenticated", nil, valid, http.StatusUnauthorized},
		{"score out of range", testutil.AuthHeaders(t, "learner"), map[string]any{"score": 140, "domains": valid["domains"]}, http.StatusBadRequest},
		{"no domains", testutil.AuthHeaders(t, "learner"), map[string]any{"score": 50, "domains": []any{}}, http.StatusBadRequest},
		{"domain without name", testutil.AuthHeaders(t, "learner"), map[string]any{"score": 50, "domains": []map[string]any{{"percentage": 10}}}, http.StatusBadRequest},
		{"invalid JSON", testutil.AuthHeaders(t, "learner"), "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Generate, testutil.MakeRequest("POST", "/api/study-path", tt.body, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	w := serve(h.Generate, testutil.MakeRequest("POST", "/api/study-path", valid, testutil.AuthHeaders(t, "planner")))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.StudyPathResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Status != "ok" || resp.StudyPathID == "" {
		t.Errorf("Expected a stored study path, got %+v", resp)
	}
	if len(resp.Recommendations) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d", len(resp.Recommendations))
	}
	first := resp.Recommendations[0]
	if first.Domain != "Neural Networks" || first.Priority != "high" {
		t.Errorf("Expected weakest domain first with high priority, got %+v", first)
	}

	var userID string
	var score int
	err := db.QueryRow("SELECT user_id, diagnostic_score FROM study_paths WHERE id = $1", resp.StudyPathID).Scan(&userID, &score)
	if err != nil {
		t.Fatalf("Failed to query study path: %v", err)
	}
	if userID != "planner" || score != 55 {
		t.Errorf("Expected planner/55, got %s/%d", userID, score)
	}
}

func TestPrefillStudyPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedDomains(t, db)
	h := NewStudyPathHandler(db, testutil.GetTestConfig())
	now := time.Now().UTC()

	monitoring := testutil.CreateTestQuestion(t, db, "MONITORING_ML_SOLUTIONS", testutil.QuestionOpts{Topic: "Monitoring"})
	serving := testutil.CreateTestQuestion(t, db, "SERVING_AND_SCALING_MODELS", testutil.QuestionOpts{Topic: "Serving"})

	completedID := insertDiagnosticSession(t, db, "owner", "", 4, now.Add(-time.Hour), now.Add(time.Hour), &now)
	q1 := insertDiagnosticQuestion(t, db, completedID, monitoring, "MONITORING_ML_SOLUTIONS", 0)
	q2 := insertDiagnosticQuestion(t, db, completedID, monitoring, "MONITORING_ML_SOLUTIONS", 1)
	q3 := insertDiagnosticQuestion(t, db, completedID, serving, "SERVING_AND_SCALING_MODELS", 2)
	insertDiagnosticQuestion(t, db, completedID, "", "", 3)
	insertDiagnosticResponse(t, db, completedID, q1, true)
	insertDiagnosticResponse(t, db, completedID, q2, true)
	insertDiagnosticResponse(t, db, completedID, q3, false)

	openID := insertDiagnosticSession(t, db, "owner", "", 1, now, now.Add(time.Hour), nil)
	guestID := insertDiagnosticSession(t, db, "", "guest-1", 1, now.Add(-time.Hour), now.Add(time.Hour), &now)

	tests := []struct {
		name           string
		query          string
		headers        map[string]string
		expectedStatus int
	}{
		{"missing id", "", nil, http.StatusBadRequest},
		{"unknown", "?diagnosticId=missing", nil, http.StatusNotFound},
		{"not completed", "?diagnosticId=" + openID, testutil.AuthHeaders(t, "owner"), http.StatusBadRequest},
		{"other user", "?diagnosticId=" + completedID, testutil.AuthHeaders(t, "intruder"), http.StatusForbidden},
		{"anonymous caller on user session", "?diagnosticId=" + completedID, nil, http.StatusForbidden},
		{"guest with matching id", "?diagnosticId=" + guestID + "&anonymousSessionId=guest-1", nil, http.StatusOK},
		{"guest with cookie mismatch", "?diagnosticId=" + guestID, map[string]string{auth.AnonymousHeaderName: "guest-2"}, http.StatusForbidden},
		{"owner", "?diagnosticId=" + completedID, testutil.AuthHeaders(t, "owner"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Prefill, testutil.MakeRequest("GET", "/api/study-plan/prefill"+tt.query, nil, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	w := serve(h.Prefill, testutil.MakeRequest("GET", "/api/study-plan/prefill?diagnosticId="+completedID, nil, testutil.AuthHeaders(t, "owner")))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.PrefillResponse
	testutil.AssertJSON(t, w, &resp)

	want := map[string][2]int{"Monitoring": {2, 2}, "Serving": {0, 1}, "General": {0, 1}}
	if len(resp.DomainBreakdown) != len(want) {
		t.Fatalf("Expected %d domains, got %+v", len(want), resp.DomainBreakdown)
	}
	for _, d := range resp.DomainBreakdown {
		w, ok := want[d.Domain]
		if !ok || d.Correct != w[0] || d.Total != w[1] {
			t.Errorf("Unexpected breakdown entry %+v", d)
		}
	}
	if len(resp.RecommendedFocusAreas) != 2 {
		t.Errorf("Expected Serving and General as focus areas, got %v", resp.RecommendedFocusAreas)
	}
}
