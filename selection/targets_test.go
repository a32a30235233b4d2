// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testero/testero-api/blueprint"
)

const (
	archCode   = "ARCHITECTING_LOW_CODE_ML_SOLUTIONS"
	collabCode = "COLLABORATING_TO_MANAGE_DATA_AND_MODELS"
	scaleCode  = "SCALING_PROTOTYPES_INTO_ML_MODELS"
	serveCode  = "SERVING_AND_SCALING_MODELS"
	autoCode   = "AUTOMATING_AND_ORCHESTRATING_ML_PIPELINES"
	monCode    = "MONITORING_ML_SOLUTIONS"
)

func ample(n int) map[string]int {
	out := make(map[string]int)
	for _, d := range blueprint.PMLE() {
		out[d.Code] = n
	}
	return out
}

func sum(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func TestDomainTargets(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  map[string]int
	}{
		{
			name:  "ten questions",
			total: 10,
			want:  map[string]int{archCode: 1, collabCode: 2, scaleCode: 2, serveCode: 2, autoCode: 2, monCode: 1},
		},
		{
			name:  "twenty questions",
			total: 20,
			want:  map[string]int{archCode: 2, collabCode: 3, scaleCode: 4, serveCode: 4, autoCode: 4, monCode: 3},
		},
		{
			name:  "zero questions",
			total: 0,
			want:  map[string]int{archCode: 0, collabCode: 0, scaleCode: 0, serveCode: 0, autoCode: 0, monCode: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DomainTargets(blueprint.PMLE(), tt.total, ample(100))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, sum(got))
		})
	}
}

func TestDomainTargets_CappedAtAvailability(t *testing.T) {
	availability := map[string]int{
		archCode: 0, collabCode: 1, scaleCode: 1, serveCode: 1, autoCode: 10, monCode: 1,
	}

	got := DomainTargets(blueprint.PMLE(), 10, availability)

	for code, n := range got {
		assert.LessOrEqual(t, n, availability[code], code)
	}
	assert.LessOrEqual(t, sum(got), 10)
	assert.Equal(t, 0, got[archCode])
	assert.Greater(t, got[autoCode], 2)
}

func TestDomainTargets_NeverExceedsPool(t *testing.T) {
	availability := map[string]int{archCode: 1, serveCode: 2}

	got := DomainTargets(blueprint.PMLE(), 20, availability)

	assert.Equal(t, 1, got[archCode])
	assert.Equal(t, 2, got[serveCode])
	assert.Equal(t, 3, sum(got))
}

func TestDomainTargets_LargeTotalNeverExceedsTotal(t *testing.T) {
	bp := blueprint.PMLE()

	for _, total := range []int{200, 400, 1000} {
		got := DomainTargets(bp, total, ample(2000))

		assert.Equal(t, total, sum(got), "total %d", total)
		for _, d := range bp {
			assert.InDelta(t, d.Weight*float64(total), float64(got[d.Code]), 1.5, "%s at %d", d.Code, total)
		}
	}
}

func TestDomainTargets_FallbackUsesOffBlueprintDomains(t *testing.T) {
	bp := blueprint.Blueprint{
		{Code: "A", Weight: 0.5},
		{Code: "B", Weight: 0.5},
	}
	availability := map[string]int{"A": 1, "B": 1, "LEGACY": 5}

	got := DomainTargets(bp, 3, availability)

	assert.Equal(t, 1, got["A"])
	assert.Equal(t, 1, got["B"])
	assert.Equal(t, 1, got["LEGACY"])
}

func TestDomainTargets_RemainderPriority(t *testing.T) {
	bp := blueprint.Blueprint{
		{Code: "A", Weight: 0.34},
		{Code: "B", Weight: 0.33},
		{Code: "C", Weight: 0.33},
	}

	got := DomainTargets(bp, 2, map[string]int{"A": 5, "B": 5, "C": 5})

	// 0.68 beats 0.66 for the first slot; B wins the tie with C by order.
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 0}, got)
}

func TestEvenDistribution(t *testing.T) {
	tests := []struct {
		name         string
		total        int
		codes        []string
		availability map[string]int
		want         map[string]int
	}{
		{
			name:         "divides evenly",
			total:        10,
			codes:        []string{"A", "B"},
			availability: map[string]int{"A": 10, "B": 10},
			want:         map[string]int{"A": 5, "B": 5},
		},
		{
			name:         "remainder goes to request order",
			total:        10,
			codes:        []string{"A", "B", "C"},
			availability: map[string]int{"A": 10, "B": 10, "C": 10},
			want:         map[string]int{"A": 4, "B": 3, "C": 3},
		},
		{
			name:         "capped domain",
			total:        10,
			codes:        []string{"A", "B"},
			availability: map[string]int{"A": 2, "B": 10},
			want:         map[string]int{"A": 2, "B": 5},
		},
		{
			name:         "unknown domain gets nothing",
			total:        5,
			codes:        []string{"A", "MISSING"},
			availability: map[string]int{"A": 10},
			want:         map[string]int{"A": 3, "MISSING": 0},
		},
		{
			name:         "no codes",
			total:        5,
			codes:        nil,
			availability: map[string]int{"A": 10},
			want:         map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvenDistribution(tt.total, tt.codes, tt.availability)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderedCodes(t *testing.T) {
	bp := blueprint.Blueprint{{Code: "B"}, {Code: "A"}}
	got := orderedCodes(bp, map[string]int{"A": 1, "B": 0, "Z": 2, "Y": 0, "X": 1})
	assert.Equal(t, []string{"B", "A", "X", "Z"}, got)
}
