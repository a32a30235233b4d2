// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"strings"
	"testing"

	"github.com/testero/testero-api/models"
	"github.com/testero/testero-api/readiness"
)

func intPtr(v int) *int { return &v }

func TestValidateStruct(t *testing.T) {
	testCases := []struct {
		name      string
		input     interface{}
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "valid practice request",
			input:   models.CreatePracticeSessionRequest{ExamKey: "pmle", DomainCodes: []string{"A"}, QuestionCount: intPtr(10)},
			wantErr: false,
		},
		{
			name:      "wrong exam key",
			input:     models.CreatePracticeSessionRequest{ExamKey: "aws", DomainCodes: []string{"A"}},
			wantErr:   true,
			errSubstr: "examKey must be 'pmle'",
		},
		{
			name:      "missing domain codes",
			input:     models.CreatePracticeSessionRequest{ExamKey: "pmle"},
			wantErr:   true,
			errSubstr: "domainCodes is required",
		},
		{
			name:      "empty domain code",
			input:     models.CreatePracticeSessionRequest{ExamKey: "pmle", DomainCodes: []string{""}},
			wantErr:   true,
			errSubstr: "is required",
		},
		{
			name:      "question count below minimum",
			input:     models.CreatePracticeSessionRequest{ExamKey: "pmle", DomainCodes: []string{"A"}, QuestionCount: intPtr(2)},
			wantErr:   true,
			errSubstr: "questionCount must be at least 5",
		},
		{
			name:      "question count above maximum",
			input:     models.CreatePracticeSessionRequest{ExamKey: "pmle", DomainCodes: []string{"A"}, QuestionCount: intPtr(21)},
			wantErr:   true,
			errSubstr: "questionCount must be at most 20",
		},
		{
			name:      "source session must be a uuid",
			input:     models.CreatePracticeSessionRequest{ExamKey: "pmle", DomainCodes: []string{"A"}, SourceSessionID: "nope"},
			wantErr:   true,
			errSubstr: "sourceSessionId must be a valid UUID",
		},
		{
			name:      "bad beta variant",
			input:     models.CreateDiagnosticSessionRequest{ExamKey: "pmle", BetaVariant: "C"},
			wantErr:   true,
			errSubstr: "betaVariant must be one of [A B]",
		},
		{
			name:    "diagnostic session defaults",
			input:   models.CreateDiagnosticSessionRequest{ExamKey: "pmle"},
			wantErr: false,
		},
		{
			name: "study path domain percentage out of range",
			input: models.StudyPathRequest{Score: 50, Domains: []readiness.DomainScore{
				{Domain: "Data", Correct: 1, Total: 2, Percentage: 150},
			}},
			wantErr:   true,
			errSubstr: "percentage must be at most 100",
		},
		{
			name:      "study path without domains",
			input:     models.StudyPathRequest{Score: 50},
			wantErr:   true,
			errSubstr: "domains is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(tc.input)

			if tc.wantErr && err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if tc.wantErr && !strings.Contains(err.Error(), tc.errSubstr) {
				t.Errorf("Expected error containing '%s', got '%s'", tc.errSubstr, err.Error())
			}
		})
	}
}

func TestValidateStruct_ReportsEveryField(t *testing.T) {
	err := ValidateStruct(models.SubmitQuestionRequest{})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "questionId is required") {
		t.Errorf("Expected questionId in error, got '%s'", err.Error())
	}
	if !strings.Contains(err.Error(), "selectedOptionKey is required") {
		t.Errorf("Expected selectedOptionKey in error, got '%s'", err.Error())
	}
}
