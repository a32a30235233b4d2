// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Free tier practice allowance per ISO week.
const (
	FreeSessionsPerWeek  = 1
	FreeQuestionsPerWeek = 10
)

// CodeFreeQuotaExceeded is returned when a free account is out of quota.
const CodeFreeQuotaExceeded = "FREE_QUOTA_EXCEEDED"

// QuotaUsage is one user's consumption for one exam and week.
type QuotaUsage struct {
	WeekStart       string `json:"week_start"`
	SessionsStarted int    `json:"sessions_started"`
	QuestionsServed int    `json:"questions_served"`
}

// QuotaResult reports whether a new session fits the free quota.
type QuotaResult struct {
	Allowed bool
	Usage   QuotaUsage
}

// WeekStart returns the Monday (UTC) that starts the ISO week of t, as
// YYYY-MM-DD.
func WeekStart(t time.Time) string {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	return monday.Format(time.DateOnly)
}

// CheckAndIncrementQuota records a free-tier practice session of questions
// questions if it fits in this week's quota. The check and the increment
// are one guarded upsert: a conflicting row is only updated while it stays
// within the limits, so concurrent requests cannot both take the last
// session. A denied request leaves usage untouched.
func CheckAndIncrementQuota(ctx context.Context, db *sql.DB, userID, exam string, questions int, now time.Time) (QuotaResult, error) {
	week := WeekStart(now)

	// A fresh insert bypasses the update guard.
	if FreeSessionsPerWeek < 1 || questions > FreeQuestionsPerWeek {
		return deniedQuota(ctx, db, userID, exam, week)
	}

	usage := QuotaUsage{WeekStart: week}
	err := db.QueryRowContext(ctx, `
		INSERT INTO practice_quota_usage (user_id, exam, week_start, sessions_started, questions_served, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (user_id, exam, week_start) DO UPDATE SET
			sessions_started = practice_quota_usage.sessions_started + 1,
			questions_served = practice_quota_usage.questions_served + excluded.questions_served,
			updated_at = excluded.updated_at
		WHERE practice_quota_usage.sessions_started + 1 <= $6
			AND practice_quota_usage.questions_served + excluded.questions_served <= $7
		RETURNING sessions_started, questions_served
	`, userID, exam, week, questions, now.UTC(), FreeSessionsPerWeek, FreeQuestionsPerWeek).
		Scan(&usage.SessionsStarted, &usage.QuestionsServed)
	if errors.Is(err, sql.ErrNoRows) {
		return deniedQuota(ctx, db, userID, exam, week)
	}
	if err != nil {
		return QuotaResult{}, fmt.Errorf("failed to update quota usage: %w", err)
	}

	return QuotaResult{Allowed: true, Usage: usage}, nil
}

func deniedQuota(ctx context.Context, db *sql.DB, userID, exam, week string) (QuotaResult, error) {
	usage := QuotaUsage{WeekStart: week}
	err := db.QueryRowContext(ctx, `
		SELECT sessions_started, questions_served
		FROM practice_quota_usage
		WHERE user_id = $1 AND exam = $2 AND week_start = $3
	`, userID, exam, week).Scan(&usage.SessionsStarted, &usage.QuestionsServed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return QuotaResult{}, fmt.Errorf("failed to read quota usage: %w", err)
	}
	return QuotaResult{Allowed: false, Usage: usage}, nil
}
