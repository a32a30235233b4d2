// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package blueprint

import "math"

// Domain is one weighted section of an exam blueprint.
type Domain struct {
	Code        string  `json:"domainCode"` // matches exam_domains.code
	DisplayName string  `json:"displayName"`
	Weight      float64 `json:"weight"` // fraction of the exam, 0..1
}

// Blueprint is an ordered list of domains. Order matters: it is the
// iteration order used when computing per-domain targets.
type Blueprint []Domain

// Exam identifiers for the PMLE exam across the different tables.
const (
	PMLEExamKey   = "pmle"
	PMLEExamCode  = "GCP_PM_ML_ENG"
	PMLEExamID    = 6
	PMLEExamLabel = "Google ML Engineer"
)

// WeightTolerance is how far the weight sum may drift from 1.0.
const WeightTolerance = 0.05

var pmle = Blueprint{
	{Code: "ARCHITECTING_LOW_CODE_ML_SOLUTIONS", DisplayName: "Architecting Low-Code ML Solutions", Weight: 0.125},
	{Code: "COLLABORATING_TO_MANAGE_DATA_AND_MODELS", DisplayName: "Collaborating to Manage Data & Models", Weight: 0.155},
	{Code: "SCALING_PROTOTYPES_INTO_ML_MODELS", DisplayName: "Scaling Prototypes into ML Models", Weight: 0.18},
	{Code: "SERVING_AND_SCALING_MODELS", DisplayName: "Serving & Scaling Models", Weight: 0.195},
	{Code: "AUTOMATING_AND_ORCHESTRATING_ML_PIPELINES", DisplayName: "Automating & Orchestrating ML Pipelines", Weight: 0.215},
	{Code: "MONITORING_ML_SOLUTIONS", DisplayName: "Monitoring ML Solutions", Weight: 0.135},
}

// PMLE returns a copy of the PMLE blueprint.
func PMLE() Blueprint {
	out := make(Blueprint, len(pmle))
	copy(out, pmle)
	return out
}

// Lookup finds a domain by code.
func (b Blueprint) Lookup(code string) (Domain, bool) {
	for _, d := range b {
		if d.Code == code {
			return d, true
		}
	}
	return Domain{}, false
}

// Weight returns the configured weight for code, or 0 if unknown.
func (b Blueprint) Weight(code string) float64 {
	d, ok := b.Lookup(code)
	if !ok {
		return 0
	}
	return d.Weight
}

// DisplayName returns the human-readable name for code, falling back to
// the code itself for domains outside the blueprint.
func (b Blueprint) DisplayName(code string) string {
	if d, ok := b.Lookup(code); ok {
		return d.DisplayName
	}
	return code
}

// TotalWeight sums all domain weights.
func (b Blueprint) TotalWeight() float64 {
	total := 0.0
	for _, d := range b {
		total += d.Weight
	}
	return total
}

// ValidateWeights reports whether the weights sum to 1.0 within WeightTolerance.
func (b Blueprint) ValidateWeights() bool {
	return math.Abs(b.TotalWeight()-1.0) < WeightTolerance
}

// IsPMLEExamType reports whether a free-text exam name refers to the PMLE exam.
func IsPMLEExamType(examType string) bool {
	switch examType {
	case "Google ML Engineer",
		"Google Professional ML Engineer",
		"Google Professional Machine Learning Engineer":
		return true
	}
	return false
}
