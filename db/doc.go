// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connecting

Open picks the driver from the configured type:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

"postgres" uses github.com/lib/pq; "sqlite" uses modernc.org/sqlite and is
what local development and the test suite run against.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The statements avoid dialect-specific types and defaults so the same schema
loads on both drivers.

# Tables

  - exam_domains, questions, answers, explanations: the question bank
  - diagnostics_sessions, diagnostic_questions, diagnostic_responses
  - practice_sessions, practice_questions, practice_responses
  - practice_attempts: single-question quick practice history
  - practice_quota_usage: free tier weekly usage
  - user_subscriptions: billing state written by the payment webhook
  - study_paths: saved study plans

# Relationships

	exam_domains 1──* questions
	questions 1──* answers
	questions 1──* explanations
	diagnostics_sessions 1──* diagnostic_questions 1──? diagnostic_responses
	practice_sessions 1──* practice_questions 1──? practice_responses

Session questions are snapshots: they copy the stem, options and correct
label at session start, so grading never reads the live question rows.
*/
package db
