package models

import (
	"encoding/json"
	"time"

	"github.com/testero/testero-api/readiness"
)

// Diagnostic session states reported by the status endpoint
const (
	SessionNotFound     = "not_found"
	SessionExpired      = "expired"
	SessionUnauthorized = "unauthorized"
	SessionCompleted    = "completed"
	SessionActive       = "active"
)

// Diagnostic actions accepted by POST /api/diagnostic
const (
	ActionStart    = "start"
	ActionAnswer   = "answer"
	ActionComplete = "complete"
)

// Diagnostic question counts
const (
	MinDiagnosticQuestions     = 1
	MaxDiagnosticQuestions     = 30
	DefaultDiagnosticQuestions = 20
)

// Practice question counts
const (
	MinPracticeQuestions     = 5
	MaxPracticeQuestions     = 20
	DefaultPracticeQuestions = 10
)

// DefaultExamType is used when a diagnostic start names no exam.
const DefaultExamType = "Google ML Engineer"

// Default sources recorded on created sessions
const (
	SourceBetaWelcome     = "beta_welcome"
	SourceStudyPlanDomain = "study_plan_domain"
)

// Shared types

type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionView is a snapshot question without its answer.
type QuestionView struct {
	ID      string   `json:"id"`
	Stem    string   `json:"stem"`
	Options []Option `json:"options"`
}

// Request types

type DiagnosticRequest struct {
	Action    string          `json:"action" validate:"required,oneof=start answer complete"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type StartDiagnosticData struct {
	ExamType           string `json:"examType"`
	NumQuestions       *int   `json:"numQuestions"`
	AnonymousSessionID string `json:"anonymousSessionId"`
}

type AnswerDiagnosticData struct {
	QuestionID    string `json:"questionId" validate:"required"`
	SelectedLabel string `json:"selectedLabel" validate:"required,oneof=A B C D"`
}

type CreateDiagnosticSessionRequest struct {
	ExamKey          string `json:"examKey" validate:"required,eq=pmle"`
	BlueprintVersion string `json:"blueprintVersion"`
	BetaVariant      string `json:"betaVariant" validate:"omitempty,oneof=A B"`
	Source           string `json:"source"`
	NumQuestions     *int   `json:"numQuestions" validate:"omitempty,min=1,max=30"`
}

type CreatePracticeSessionRequest struct {
	ExamKey         string   `json:"examKey" validate:"required,eq=pmle"`
	DomainCodes     []string `json:"domainCodes" validate:"required,min=1,dive,required"`
	QuestionCount   *int     `json:"questionCount" validate:"omitempty,min=5,max=20"`
	Source          string   `json:"source"`
	SourceSessionID string   `json:"sourceSessionId" validate:"omitempty,uuid"`
}

type PracticeAnswerRequest struct {
	QuestionID    string `json:"questionId" validate:"required"`
	SelectedLabel string `json:"selectedLabel" validate:"required"`
}

// questionId -> selected label
type CompletePracticeRequest struct {
	Answers map[string]string `json:"answers"`
}

type SubmitQuestionRequest struct {
	QuestionID        string `json:"questionId" validate:"required"`
	SelectedOptionKey string `json:"selectedOptionKey" validate:"required"`
}

type StudyPathRequest struct {
	DiagnosticSummary json.RawMessage         `json:"diagnosticSummary"`
	Score             float64                 `json:"score" validate:"gte=0,lte=100"`
	Domains           []readiness.DomainScore `json:"domains" validate:"required,min=1,dive"`
}

type ClaimAnonymousSessionsRequest struct {
	AnonymousSessionID string `json:"anonymousSessionId"`
}

// Response types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type StartDiagnosticResponse struct {
	SessionID          string         `json:"sessionId"`
	Questions          []QuestionView `json:"questions"`
	TotalQuestions     int            `json:"totalQuestions"`
	ExpiresAt          time.Time      `json:"expiresAt"`
	AnonymousSessionID string         `json:"anonymousSessionId,omitempty"`
	Resumed            bool           `json:"resumed,omitempty"`
}

type AnswerDiagnosticResponse struct {
	IsCorrect     bool    `json:"isCorrect"`
	CorrectAnswer string  `json:"correctAnswer"`
	Explanation   *string `json:"explanation"`
}

type CompleteDiagnosticResponse struct {
	TotalQuestions  int      `json:"totalQuestions"`
	CorrectAnswers  int      `json:"correctAnswers"`
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
	ExamType        string   `json:"examType"`
}

type DiagnosticSessionView struct {
	ID                 string         `json:"id"`
	UserID             *string        `json:"userId"`
	ExamType           string         `json:"examType"`
	Questions          []QuestionView `json:"questions"`
	StartedAt          time.Time      `json:"startedAt"`
	CurrentQuestion    int            `json:"currentQuestion"`
	ExpiresAt          time.Time      `json:"expiresAt"`
	AnonymousSessionID *string        `json:"anonymousSessionId"`
}

type GetDiagnosticResponse struct {
	Session DiagnosticSessionView `json:"session"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type SessionStatusResponse struct {
	Exists      bool       `json:"exists"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExamType    string     `json:"examType,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// ReviewQuestion is a graded question in a session summary.
type ReviewQuestion struct {
	ID            string   `json:"id"`
	Stem          string   `json:"stem"`
	Options       []Option `json:"options"`
	UserAnswer    string   `json:"userAnswer"`
	CorrectAnswer string   `json:"correctAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
	Explanation   *string  `json:"explanation,omitempty"`
	Domain        *string  `json:"domain,omitempty"`
}

type DiagnosticSummary struct {
	SessionID      string           `json:"sessionId"`
	ExamType       string           `json:"examType"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectAnswers int              `json:"correctAnswers"`
	Score          int              `json:"score"`
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    time.Time        `json:"completedAt"`
	Questions      []ReviewQuestion `json:"questions"`
}

type DiagnosticSummaryResponse struct {
	Summary         DiagnosticSummary       `json:"summary"`
	DomainBreakdown []readiness.DomainScore `json:"domainBreakdown"`
}

type DomainDistribution struct {
	DomainCode     string `json:"domainCode"`
	SelectedCount  int    `json:"selectedCount"`
	RequestedCount int    `json:"requestedCount"`
}

type CreatePracticeSessionResponse struct {
	SessionID          string               `json:"sessionId"`
	Route              string               `json:"route"`
	QuestionCount      int                  `json:"questionCount"`
	DomainDistribution []DomainDistribution `json:"domainDistribution"`
}

type PracticeSessionView struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	Exam            string         `json:"exam"`
	Questions       []QuestionView `json:"questions"`
	StartedAt       time.Time      `json:"startedAt"`
	QuestionCount   int            `json:"questionCount"`
	Source          string         `json:"source"`
	SourceSessionID *string        `json:"sourceSessionId"`
}

type GetPracticeSessionResponse struct {
	Session PracticeSessionView `json:"session"`
}

type PracticeAnswerResponse struct {
	Success      bool   `json:"success"`
	IsCorrect    bool   `json:"isCorrect"`
	CorrectLabel string `json:"correctLabel"`
	Updated      bool   `json:"updated,omitempty"`
}

type CompletePracticeResponse struct {
	SessionID      string    `json:"sessionId"`
	TotalQuestions int       `json:"totalQuestions"`
	Answered       int       `json:"answered"`
	CorrectAnswers int       `json:"correctAnswers"`
	Score          int       `json:"score"`
	CompletedAt    time.Time `json:"completedAt"`
}

type PracticeSummary struct {
	SessionID       string           `json:"sessionId"`
	Exam            string           `json:"exam"`
	TotalQuestions  int              `json:"totalQuestions"`
	CorrectAnswers  int              `json:"correctAnswers"`
	Score           int              `json:"score"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     time.Time        `json:"completedAt"`
	Source          string           `json:"source"`
	SourceSessionID *string          `json:"sourceSessionId"`
	Questions       []ReviewQuestion `json:"questions"`
}

type PracticeSummaryResponse struct {
	Summary         PracticeSummary         `json:"summary"`
	DomainBreakdown []readiness.DomainScore `json:"domainBreakdown"`
}

type RecentSession struct {
	ID             string    `json:"id"`
	ExamType       string    `json:"examType"`
	Score          int       `json:"score"`
	CompletedAt    time.Time `json:"completedAt"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
}

type DiagnosticStats struct {
	TotalSessions  int             `json:"totalSessions"`
	RecentSessions []RecentSession `json:"recentSessions"`
}

type PracticeStats struct {
	TotalQuestionsAnswered int        `json:"totalQuestionsAnswered"`
	CorrectAnswers         int        `json:"correctAnswers"`
	AccuracyPercentage     int        `json:"accuracyPercentage"`
	LastPracticeDate       *time.Time `json:"lastPracticeDate"`
}

type DashboardData struct {
	Diagnostic     DiagnosticStats `json:"diagnostic"`
	Practice       PracticeStats   `json:"practice"`
	ReadinessScore int             `json:"readinessScore"`
}

type DashboardResponse struct {
	Status string        `json:"status"`
	Data   DashboardData `json:"data"`
}

type ExamReadinessSummary struct {
	ExamKey                   string                  `json:"examKey"`
	CurrentReadinessScore     int                     `json:"currentReadinessScore"`
	CurrentReadinessTier      *readiness.ExamTierInfo `json:"currentReadinessTier"`
	LastDiagnosticDate        *time.Time              `json:"lastDiagnosticDate"`
	LastDiagnosticSessionID   *string                 `json:"lastDiagnosticSessionId"`
	TotalDiagnosticsCompleted int                     `json:"totalDiagnosticsCompleted"`
	HasCompletedDiagnostic    bool                    `json:"hasCompletedDiagnostic"`
}

type DashboardSummaryResponse struct {
	Status string               `json:"status"`
	Data   ExamReadinessSummary `json:"data"`
}

type CurrentQuestionResponse struct {
	ID      string   `json:"id"`
	Stem    string   `json:"stem"`
	Topic   string   `json:"topic,omitempty"`
	Options []Option `json:"options"`
}

type SubmitQuestionResponse struct {
	IsCorrect        bool   `json:"isCorrect"`
	CorrectOptionKey string `json:"correctOptionKey"`
	ExplanationText  string `json:"explanationText"`
}

type StudyPathResponse struct {
	Status          string                     `json:"status"`
	Recommendations []readiness.Recommendation `json:"recommendations"`
	StudyPathID     string                     `json:"studyPathId,omitempty"`
}

type PrefillResponse struct {
	DomainBreakdown       []readiness.DomainScore `json:"domainBreakdown"`
	RecommendedFocusAreas []string                `json:"recommendedFocusAreas"`
}

type ClaimAnonymousSessionsResponse struct {
	GuestUpgraded       bool `json:"guestUpgraded"`
	SessionsTransferred int  `json:"sessionsTransferred"`
}
