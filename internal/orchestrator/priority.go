package orchestrator

import (
	"sort"
	"strings"
)

// Priority buckets for recommendations and issues.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityOrder ranks priorities for sorting (lower is more urgent).
var priorityOrder = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// classifierRules is the ordered keyword table used to classify free-text
// findings. First match wins; unmatched text defaults to low. The lists are
// configuration, not a complete taxonomy: they cover the phrases the
// analyzers actually emit.
var classifierRules = []struct {
	Priority Priority
	Keywords []string
}{
	{PriorityCritical, []string{
		"expired", "immediately", "dnssec", "self-signed", "takeover", "+all",
	}},
	{PriorityHigh, []string{
		"strict-transport-security", "hsts", "spf", "dmarc", "tls 1.0", "tlsv1.0",
		"tlsv1.1", "weak", "sha-1", "legacy protocol", "unsafe-eval",
	}},
	{PriorityMedium, []string{
		"content-security-policy", "csp", "x-frame-options", "caa", "dkim",
		"referrer", "unsafe-inline", "wildcard", "x-content-type-options",
	}},
}

// ClassifyPriority assigns a priority to a finding by ordered keyword match.
func ClassifyPriority(text string) Priority {
	lower := strings.ToLower(text)
	for _, rule := range classifierRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Priority
			}
		}
	}
	return PriorityLow
}

// PrioritizedRecommendations groups recommendation strings into priority
// buckets and keeps a flattened top list.
type PrioritizedRecommendations struct {
	Critical []string `json:"critical,omitempty"`
	High     []string `json:"high,omitempty"`
	Medium   []string `json:"medium,omitempty"`
	Low      []string `json:"low,omitempty"`
	Top      []string `json:"top"`
}

// topRecommendationLimit caps the flattened list.
const topRecommendationLimit = 10

// PrioritizeRecommendations classifies and buckets every recommendation,
// deduplicating repeats, and builds the top list sorted by priority.
func PrioritizeRecommendations(recommendations []string) PrioritizedRecommendations {
	var result PrioritizedRecommendations

	type ranked struct {
		text     string
		priority Priority
		index    int
	}
	var all []ranked
	seen := make(map[string]bool)

	for i, rec := range recommendations {
		if rec == "" || seen[rec] {
			continue
		}
		seen[rec] = true

		priority := ClassifyPriority(rec)
		all = append(all, ranked{text: rec, priority: priority, index: i})

		switch priority {
		case PriorityCritical:
			result.Critical = append(result.Critical, rec)
		case PriorityHigh:
			result.High = append(result.High, rec)
		case PriorityMedium:
			result.Medium = append(result.Medium, rec)
		default:
			result.Low = append(result.Low, rec)
		}
	}

	// Stable ordering: by priority, then original position.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].priority != all[j].priority {
			return priorityOrder[all[i].priority] < priorityOrder[all[j].priority]
		}
		return all[i].index < all[j].index
	})

	limit := topRecommendationLimit
	if len(all) < limit {
		limit = len(all)
	}
	result.Top = make([]string, 0, limit)
	for _, entry := range all[:limit] {
		result.Top = append(result.Top, entry.text)
	}

	return result
}
