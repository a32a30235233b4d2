// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Question statuses eligible for selection.
const (
	StatusActive     = "ACTIVE"
	ReviewStatusGood = "GOOD"
)

// SQLPool reads eligible questions from the questions, answers and
// explanations tables.
type SQLPool struct {
	db *sql.DB
}

func NewSQLPool(db *sql.DB) *SQLPool {
	return &SQLPool{db: db}
}

// where builds the shared eligibility predicate. Placeholders start at $1.
func (f Filter) where() (string, []any) {
	clauses := []string{"q.exam = $1", "q.status = $2", "q.review_status = $3"}
	args := []any{f.Exam, StatusActive, ReviewStatusGood}

	if len(f.DomainCodes) > 0 {
		holders := make([]string, len(f.DomainCodes))
		for i, code := range f.DomainCodes {
			args = append(args, code)
			holders[i] = "$" + strconv.Itoa(len(args))
		}
		clauses = append(clauses, "d.code IN ("+strings.Join(holders, ", ")+")")
	}
	if f.RequireExplanation {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM explanations e WHERE e.question_id = q.id)")
	}

	return strings.Join(clauses, " AND "), args
}

// Availability counts eligible questions per domain.
func (p *SQLPool) Availability(ctx context.Context, f Filter) ([]DomainCount, error) {
	where, args := f.where()

	rows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.code, d.name, COUNT(q.id)
		FROM questions q
		JOIN exam_domains d ON d.id = q.domain_id
		WHERE `+where+`
		GROUP BY d.id, d.code, d.name
		ORDER BY d.code
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	var counts []DomainCount
	for rows.Next() {
		var c DomainCount
		if err := rows.Scan(&c.DomainID, &c.Code, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan domain count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Questions loads every eligible question of one domain with its answers.
func (p *SQLPool) Questions(ctx context.Context, f Filter, domainID string) ([]Question, error) {
	where, args := f.where()
	args = append(args, domainID)
	where += " AND q.domain_id = $" + strconv.Itoa(len(args))

	rows, err := p.db.QueryContext(ctx, `
		SELECT q.id, q.stem, q.domain_id, d.code, d.name,
		       COALESCE(q.difficulty, ''), COALESCE(q.topic, '')
		FROM questions q
		JOIN exam_domains d ON d.id = q.domain_id
		WHERE `+where+`
		ORDER BY q.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}

	var questions []Question
	index := make(map[string]int)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Stem, &q.DomainID, &q.DomainCode, &q.DomainName, &q.Difficulty, &q.Topic); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(questions) == 0 {
		return nil, nil
	}

	answerRows, err := p.db.QueryContext(ctx, `
		SELECT a.question_id, a.choice_label, a.choice_text, a.is_correct
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		JOIN exam_domains d ON d.id = q.domain_id
		WHERE `+where+`
		ORDER BY a.question_id, a.choice_label
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var questionID string
		var a Answer
		if err := answerRows.Scan(&questionID, &a.Label, &a.Text, &a.IsCorrect); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if i, ok := index[questionID]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	return questions, answerRows.Err()
}
