// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package readiness

import (
	"math"
	"sort"
)

// Blend weights for the readiness score.
const (
	DiagnosticWeight   = 0.6
	PracticeWeight     = 0.4
	DiagnosticOnlyRate = 0.8
	PracticeOnlyRate   = 0.7
)

// Exam readiness thresholds.
const (
	ExamLowThreshold      = 40
	ExamBuildingThreshold = 70
	ExamReadyThreshold    = 85
)

// Domain tier thresholds.
const (
	DomainCriticalThreshold = 40
	DomainModerateThreshold = 70
)

// FocusThreshold is the percentage under which a domain is a focus area.
const FocusThreshold = 70

// Score blends an average diagnostic score with practice accuracy, both on
// a 0-100 scale. A nil input means no data. With only one source the
// score is discounted.
func Score(diagnostic, practice *float64) int {
	switch {
	case diagnostic != nil && practice != nil:
		return round(DiagnosticWeight**diagnostic + PracticeWeight**practice)
	case diagnostic != nil:
		return round(*diagnostic * DiagnosticOnlyRate)
	case practice != nil:
		return round(*practice * PracticeOnlyRate)
	default:
		return 0
	}
}

// Percent returns round(100*correct/total), or 0 when total is 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return round(float64(correct) / float64(total) * 100)
}

// ExamTierInfo describes an exam readiness band.
type ExamTierInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ExamTier maps a 0-100 readiness score to its band.
func ExamTier(score int) ExamTierInfo {
	switch {
	case score < ExamLowThreshold:
		return ExamTierInfo{
			ID:          "low",
			Label:       "Low",
			Description: "Needs significant improvement. Focus on foundational concepts and consistent practice.",
		}
	case score < ExamBuildingThreshold:
		return ExamTierInfo{
			ID:          "building",
			Label:       "Building",
			Description: "Making progress. Focus on weak areas to reach exam readiness.",
		}
	case score < ExamReadyThreshold:
		return ExamTierInfo{
			ID:          "ready",
			Label:       "Ready",
			Description: "Approaching exam readiness. Keep practicing to maintain and strengthen your knowledge.",
		}
	default:
		return ExamTierInfo{
			ID:          "strong",
			Label:       "Strong",
			Description: "Well-prepared for the exam. Continue practicing to maintain your knowledge.",
		}
	}
}

// DomainTierInfo describes a domain score band.
type DomainTierInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func DomainTier(score int) DomainTierInfo {
	switch {
	case score < DomainCriticalThreshold:
		return DomainTierInfo{ID: "critical", Label: "Critical"}
	case score < DomainModerateThreshold:
		return DomainTierInfo{ID: "moderate", Label: "Moderate"}
	default:
		return DomainTierInfo{ID: "strong", Label: "Strong"}
	}
}

// Item is the graded outcome of one question, tagged with its domain key.
type Item struct {
	Domain  string
	Correct bool
}

// DomainScore is the aggregated result for one domain.
type DomainScore struct {
	Domain     string `json:"domain" validate:"required"`
	Correct    int    `json:"correct" validate:"gte=0"`
	Total      int    `json:"total" validate:"gte=0"`
	Percentage int    `json:"percentage" validate:"gte=0,lte=100"`
}

// Breakdown groups items by domain, preserving first-seen order. nameFn
// maps an item's domain key to the label used in the output; nil keeps
// the key as is.
func Breakdown(items []Item, nameFn func(string) string) []DomainScore {
	out := []DomainScore{}
	index := make(map[string]int)

	for _, item := range items {
		name := item.Domain
		if nameFn != nil {
			name = nameFn(name)
		}

		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, DomainScore{Domain: name})
		}
		out[i].Total++
		if item.Correct {
			out[i].Correct++
		}
	}

	for i := range out {
		out[i].Percentage = Percent(out[i].Correct, out[i].Total)
	}
	return out
}

// FocusAreas lists domains scoring under FocusThreshold, in input order.
func FocusAreas(breakdown []DomainScore) []string {
	areas := []string{}
	for _, d := range breakdown {
		if d.Percentage < FocusThreshold {
			areas = append(areas, d.Domain)
		}
	}
	return areas
}

func round(v float64) int {
	return int(math.Round(v))
}

// sortByPercentage orders domains weakest first, keeping input order on ties.
func sortByPercentage(domains []DomainScore) []DomainScore {
	sorted := make([]DomainScore, len(domains))
	copy(sorted, domains)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Percentage < sorted[j].Percentage
	})
	return sorted
}
