// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package billing

// AccessLevel is the caller's tier for feature gating.
type AccessLevel string

const (
	Anonymous  AccessLevel = "ANONYMOUS"
	Free       AccessLevel = "FREE"
	Subscriber AccessLevel = "SUBSCRIBER"
)

// Feature is a gated PMLE capability.
type Feature string

const (
	FeatureDiagnosticRun         Feature = "DIAGNOSTIC_RUN"
	FeatureDiagnosticSummaryBase Feature = "DIAGNOSTIC_SUMMARY_BASIC"
	FeatureDiagnosticSummaryFull Feature = "DIAGNOSTIC_SUMMARY_FULL"
	FeatureExplanations          Feature = "EXPLANATIONS"
	FeaturePracticeSession       Feature = "PRACTICE_SESSION"
	FeaturePracticeFreeQuota     Feature = "PRACTICE_SESSION_FREE_QUOTA"
)

// Anonymous callers may run a diagnostic and see the basic summary. Free
// accounts add the full summary and the weekly practice quota. Subscribers
// get everything.
var featureMatrix = map[AccessLevel]map[Feature]bool{
	Anonymous: {
		FeatureDiagnosticRun:         true,
		FeatureDiagnosticSummaryBase: true,
	},
	Free: {
		FeatureDiagnosticRun:         true,
		FeatureDiagnosticSummaryBase: true,
		FeatureDiagnosticSummaryFull: true,
		FeaturePracticeFreeQuota:     true,
	},
	Subscriber: {
		FeatureDiagnosticRun:         true,
		FeatureDiagnosticSummaryBase: true,
		FeatureDiagnosticSummaryFull: true,
		FeatureExplanations:          true,
		FeaturePracticeSession:       true,
		FeaturePracticeFreeQuota:     true,
	},
}

// LevelFor derives the access level. An empty userID is anonymous.
func LevelFor(userID string, isSubscriber bool) AccessLevel {
	switch {
	case userID == "":
		return Anonymous
	case isSubscriber:
		return Subscriber
	default:
		return Free
	}
}

// CanUseFeature reports whether level unlocks feature. Unknown levels and
// features are denied.
func CanUseFeature(level AccessLevel, feature Feature) bool {
	return featureMatrix[level][feature]
}
