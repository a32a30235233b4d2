// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to types and syntax shared by Postgres and SQLite.
// Timestamps are always written by the application in UTC.
const schema = `
-- Question bank
CREATE TABLE IF NOT EXISTS exam_domains (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    exam TEXT NOT NULL,
    domain_id TEXT NOT NULL REFERENCES exam_domains(id),
    stem TEXT NOT NULL,
    difficulty TEXT,
    topic TEXT,
    status TEXT NOT NULL DEFAULT 'ACTIVE',
    review_status TEXT NOT NULL DEFAULT 'GOOD'
);

CREATE INDEX IF NOT EXISTS idx_questions_exam_domain ON questions(exam, domain_id);

CREATE TABLE IF NOT EXISTS answers (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    choice_label TEXT NOT NULL,
    choice_text TEXT NOT NULL,
    is_correct BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);

CREATE TABLE IF NOT EXISTS explanations (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    explanation_text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_explanations_question_id ON explanations(question_id);

-- Diagnostics
CREATE TABLE IF NOT EXISTS diagnostics_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT,
    anonymous_session_id TEXT,
    exam_id INTEGER NOT NULL,
    exam_type TEXT NOT NULL,
    question_count INTEGER NOT NULL,
    started_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_sessions_user ON diagnostics_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_sessions_anon ON diagnostics_sessions(anonymous_session_id);

CREATE TABLE IF NOT EXISTS diagnostic_questions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES diagnostics_sessions(id) ON DELETE CASCADE,
    original_question_id TEXT,
    stem TEXT NOT NULL,
    options TEXT NOT NULL,
    correct_label TEXT NOT NULL,
    domain_id TEXT,
    domain_code TEXT,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_diagnostic_questions_session ON diagnostic_questions(session_id);

CREATE TABLE IF NOT EXISTS diagnostic_responses (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES diagnostics_sessions(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES diagnostic_questions(id) ON DELETE CASCADE,
    selected_label TEXT NOT NULL,
    is_correct BOOLEAN NOT NULL,
    responded_at TIMESTAMP NOT NULL,
    UNIQUE (session_id, question_id)
);

-- Practice
CREATE TABLE IF NOT EXISTS practice_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    exam TEXT NOT NULL,
    exam_id INTEGER NOT NULL,
    source TEXT NOT NULL,
    source_session_id TEXT,
    question_count INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_practice_sessions_user ON practice_sessions(user_id);

CREATE TABLE IF NOT EXISTS practice_questions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
    canonical_question_id TEXT,
    stem TEXT NOT NULL,
    options TEXT NOT NULL,
    correct_label TEXT NOT NULL,
    domain_id TEXT,
    domain_code TEXT,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_practice_questions_session ON practice_questions(session_id);

CREATE TABLE IF NOT EXISTS practice_responses (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES practice_sessions(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES practice_questions(id) ON DELETE CASCADE,
    selected_label TEXT NOT NULL,
    is_correct BOOLEAN NOT NULL,
    responded_at TIMESTAMP NOT NULL,
    UNIQUE (session_id, question_id)
);

CREATE TABLE IF NOT EXISTS practice_attempts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    selected_label TEXT NOT NULL,
    is_correct BOOLEAN NOT NULL,
    topic TEXT,
    difficulty TEXT,
    answered_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_practice_attempts_user_answered ON practice_attempts(user_id, answered_at);

CREATE TABLE IF NOT EXISTS practice_quota_usage (
    user_id TEXT NOT NULL,
    exam TEXT NOT NULL,
    week_start TEXT NOT NULL,
    sessions_started INTEGER NOT NULL DEFAULT 0,
    questions_served INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, exam, week_start)
);

-- Billing
CREATE TABLE IF NOT EXISTS user_subscriptions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL,
    cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
    current_period_end TIMESTAMP,
    trial_ends_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_subscriptions_user ON user_subscriptions(user_id);

-- Study paths
CREATE TABLE IF NOT EXISTS study_paths (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    diagnostic_score INTEGER NOT NULL,
    recommendations TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`
