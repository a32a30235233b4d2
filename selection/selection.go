// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/testero/testero-api/blueprint"
)

// MinPoolThreshold is the per-domain pool size below which selection logs
// a content warning.
const MinPoolThreshold = 5

var (
	ErrInsufficientQuestions = errors.New("insufficient questions")
	ErrNoDomains             = errors.New("at least one domain code must be provided")
	ErrInvalidCount          = errors.New("question count must be greater than 0")
	ErrUnsupportedExam       = errors.New("unsupported exam key")
)

// Answer is one answer choice of a canonical question.
type Answer struct {
	Label     string `json:"label"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a canonical question with its answers and domain.
type Question struct {
	ID         string
	Stem       string
	DomainID   string
	DomainCode string
	DomainName string
	Difficulty string
	Topic      string
	Answers    []Answer
}

// CorrectLabel returns the label of the first correct answer, or "".
func (q Question) CorrectLabel() string {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.Label
		}
	}
	return ""
}

// DomainCount is the number of eligible questions in one domain.
type DomainCount struct {
	DomainID string
	Code     string
	Name     string
	Count    int
}

// Filter narrows the eligible question pool.
type Filter struct {
	Exam               string
	DomainCodes        []string // empty means all domains
	RequireExplanation bool
}

// Pool is a source of eligible questions.
type Pool interface {
	Availability(ctx context.Context, f Filter) ([]DomainCount, error)
	Questions(ctx context.Context, f Filter, domainID string) ([]Question, error)
}

// Distribution describes how one domain's target was met.
type Distribution struct {
	DomainCode string `json:"domainCode"`
	Target     int    `json:"targetCount"`
	Available  int    `json:"availableCount"`
	Selected   int    `json:"selectedCount"`
}

// Result is a selected question set.
type Result struct {
	Questions    []Question
	Distribution []Distribution
}

// Options tune a selection run.
type Options struct {
	Rand  *rand.Rand
	Debug bool
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// SelectDiagnostic picks n questions weighted by the blueprint. It fails
// with ErrInsufficientQuestions when the pool cannot supply n questions.
func SelectDiagnostic(ctx context.Context, pool Pool, bp blueprint.Blueprint, n int, opts Options) (Result, error) {
	filter := Filter{Exam: blueprint.PMLEExamCode}

	counts, err := pool.Availability(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch domain counts: %w", err)
	}

	availability := make(map[string]int, len(counts))
	byCode := make(map[string]DomainCount, len(counts))
	totalAvailable := 0
	for _, c := range counts {
		availability[c.Code] += c.Count
		byCode[c.Code] = c
		totalAvailable += c.Count
	}

	targets := DomainTargets(bp, n, availability)
	rng := opts.rng()

	var selected []Question
	var dist []Distribution
	for _, code := range orderedCodes(bp, targets) {
		target := targets[code]
		available := availability[code]
		warnLowPool(code, available)

		if target == 0 {
			dist = append(dist, Distribution{DomainCode: code, Available: available})
			continue
		}

		picked, err := sampleDomain(ctx, pool, filter, byCode[code], target, rng)
		if err != nil {
			slog.Error("failed to fetch domain questions", "domain", code, "error", err)
			dist = append(dist, Distribution{DomainCode: code, Target: target, Available: available})
			continue
		}

		selected = append(selected, picked...)
		dist = append(dist, Distribution{
			DomainCode: code,
			Target:     target,
			Available:  available,
			Selected:   len(picked),
		})
	}

	if len(selected) < n {
		return Result{}, fmt.Errorf("%w: requested %d, selected %d, total available %d",
			ErrInsufficientQuestions, n, len(selected), totalAvailable)
	}

	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	selected = selected[:n]

	if opts.Debug {
		logDistribution("diagnostic", dist, len(selected), n)
	}

	return Result{Questions: selected, Distribution: dist}, nil
}

// SelectPractice picks up to n questions spread evenly across the given
// domains. Only questions with an explanation are eligible. A shortfall is
// logged, not returned as an error.
func SelectPractice(ctx context.Context, pool Pool, bp blueprint.Blueprint, examKey string, codes []string, n int, opts Options) (Result, error) {
	if len(codes) == 0 {
		return Result{}, ErrNoDomains
	}
	if n <= 0 {
		return Result{}, ErrInvalidCount
	}
	if examKey != blueprint.PMLEExamKey {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedExam, examKey)
	}

	filter := Filter{Exam: blueprint.PMLEExamCode, DomainCodes: codes, RequireExplanation: true}

	counts, err := pool.Availability(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch domain counts: %w", err)
	}

	availability := make(map[string]int, len(counts))
	byCode := make(map[string]DomainCount, len(counts))
	totalAvailable := 0
	for _, c := range counts {
		availability[c.Code] += c.Count
		byCode[c.Code] = c
		totalAvailable += c.Count
	}
	for _, code := range codes {
		if _, ok := byCode[code]; !ok {
			slog.Warn("domain has no available questions with explanations", "domain", code)
		}
	}

	targets := EvenDistribution(n, codes, availability)
	rng := opts.rng()

	var selected []Question
	dist := make([]Distribution, 0, len(codes))
	for _, code := range codes {
		target := targets[code]
		available := availability[code]
		warnLowPool(code, available)

		if target == 0 || available == 0 {
			dist = append(dist, Distribution{DomainCode: code, Target: target, Available: available})
			continue
		}

		picked, err := sampleDomain(ctx, pool, filter, byCode[code], target, rng)
		if err != nil {
			slog.Error("failed to fetch domain questions", "domain", code, "error", err)
			dist = append(dist, Distribution{DomainCode: code, Target: target, Available: available})
			continue
		}

		selected = append(selected, picked...)
		dist = append(dist, Distribution{
			DomainCode: code,
			Target:     target,
			Available:  available,
			Selected:   len(picked),
		})
	}

	if len(selected) < n {
		slog.Warn("practice selection short",
			"requested", n,
			"selected", len(selected),
			"available", totalAvailable,
		)
	}

	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })

	if opts.Debug {
		logDistribution("practice", dist, len(selected), n)
	}

	return Result{Questions: selected, Distribution: dist}, nil
}

// sampleDomain loads the whole domain pool and draws target questions
// uniformly without replacement.
func sampleDomain(ctx context.Context, pool Pool, filter Filter, domain DomainCount, target int, rng *rand.Rand) ([]Question, error) {
	questions, err := pool.Questions(ctx, filter, domain.DomainID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		slog.Warn("no questions available for domain", "domain", domain.Code)
		return nil, nil
	}

	rng.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	picked := questions[:min(target, len(questions))]

	for i := range picked {
		picked[i].DomainID = domain.DomainID
		picked[i].DomainCode = domain.Code
		if picked[i].DomainName == "" {
			picked[i].DomainName = domain.Name
		}
		if picked[i].DomainName == "" {
			picked[i].DomainName = domain.Code
		}
	}
	return picked, nil
}

func warnLowPool(code string, available int) {
	if available > 0 && available < MinPoolThreshold {
		slog.Warn("low question pool for domain", "domain", code, "available", available)
	}
}

func logDistribution(kind string, dist []Distribution, got, want int) {
	parts := make([]string, 0, len(dist))
	for _, d := range dist {
		parts = append(parts, fmt.Sprintf("%s: %d/%d (available %d)", d.DomainCode, d.Selected, d.Target, d.Available))
	}
	slog.Info("domain distribution",
		"kind", kind,
		"domains", strings.Join(parts, ", "),
		"selected", got,
		"requested", want,
	)
}
