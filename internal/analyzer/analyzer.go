package analyzer

import "context"

// Analyzer category names. The orchestrator keys its scoring weights on these,
// so they double as the category labels in reports.
const (
	NameHeaders = "headers"
	NameTLS     = "ssl_tls"
	NameDNS     = "dns"
)

// Outcome is the result of one analyzer run against one target.
// A failed run carries Success=false and Error; it never contributes to
// an overall score.
type Outcome struct {
	Analyzer        string   `json:"analyzer"`
	Success         bool     `json:"success"`
	Score           float64  `json:"score"`
	Grade           string   `json:"grade,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Analyzer is the interface all assessment probes satisfy.
type Analyzer interface {
	// Analyze runs the probe for a single target. Network and protocol
	// failures are reported via the returned Outcome, never as a panic or an
	// escaping error.
	Analyze(ctx context.Context, target Target) Outcome

	// Name returns the category name ("headers", "ssl_tls", "dns").
	Name() string
}

// Grade converts a 0-100 score to a letter grade using fixed thresholds.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// failure builds the Outcome for an analyzer that could not produce a score.
func failure(name string, err error) Outcome {
	return Outcome{
		Analyzer: name,
		Success:  false,
		Error:    err.Error(),
	}
}

// clampScore keeps a computed score inside [0,100].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
