// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package readiness

// Study priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// WeakTopicThreshold is the percentage under which a domain gets
// foundational topics instead of advanced ones.
const WeakTopicThreshold = 50

// Recommendation is one entry of a study plan.
type Recommendation struct {
	Domain        string   `json:"domain"`
	Priority      string   `json:"priority"`
	Topics        []string `json:"topics"`
	EstimatedTime string   `json:"estimatedTime"`
}

type topicSet struct {
	weak   []string
	strong []string
}

var domainTopics = map[string]topicSet{
	"Neural Networks": {
		weak:   []string{"Introduction to Neural Networks", "Perceptrons and Activation Functions", "Backpropagation Fundamentals"},
		strong: []string{"Advanced Neural Architectures", "Optimization Algorithms", "Neural Network Regularization"},
	},
	"Machine Learning Basics": {
		weak:   []string{"Supervised vs Unsupervised Learning", "Model Evaluation Metrics", "Feature Engineering Basics"},
		strong: []string{"Advanced Model Selection", "Ensemble Methods", "Feature Selection Techniques"},
	},
	"Model Optimization": {
		weak:   []string{"Overfitting and Underfitting", "Regularization Techniques", "Hyperparameter Tuning Basics"},
		strong: []string{"Advanced Hyperparameter Optimization", "Automated ML Pipelines", "Model Compression Techniques"},
	},
}

var defaultTopics = topicSet{
	weak:   []string{"Fundamental Concepts", "Basic Techniques", "Practice Problems"},
	strong: []string{"Advanced Concepts", "Optimization Strategies", "Real-world Applications"},
}

func Priority(percentage int) string {
	switch {
	case percentage < 40:
		return PriorityHigh
	case percentage < 70:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func EstimatedTime(priority string) string {
	switch priority {
	case PriorityHigh:
		return "2-3 weeks"
	case PriorityMedium:
		return "1-2 weeks"
	default:
		return "1 week"
	}
}

// Topics returns suggested study topics for a domain at the given score.
func Topics(domain string, percentage int) []string {
	set, ok := domainTopics[domain]
	if !ok {
		set = defaultTopics
	}
	topics := set.strong
	if percentage < WeakTopicThreshold {
		topics = set.weak
	}
	return append([]string(nil), topics...)
}

// StudyPlan orders domains weakest first and attaches a priority, topics
// and a time estimate to each.
func StudyPlan(domains []DomainScore) []Recommendation {
	plan := make([]Recommendation, 0, len(domains))
	for _, d := range sortByPercentage(domains) {
		priority := Priority(d.Percentage)
		plan = append(plan, Recommendation{
			Domain:        d.Domain,
			Priority:      priority,
			Topics:        Topics(d.Domain, d.Percentage),
			EstimatedTime: EstimatedTime(priority),
		})
	}
	return plan
}

// DiagnosticRecommendations returns the advice shown after a diagnostic.
// score is the unrounded percentage.
func DiagnosticRecommendations(score float64, examType string) []string {
	recs := []string{"Focus on areas where you were unsure."}
	if score < 70 {
		recs = append(recs, "Consider reviewing the fundamentals of "+examType)
	} else {
		recs = append(recs, "Great job! Consider advanced topics or practice tests.")
	}
	return recs
}
