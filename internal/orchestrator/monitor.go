package orchestrator

import (
	"context"
	"fmt"
	"math"

	"github.com/webposture/webposture/internal/shared/constants"
)

// Thresholds configure monitoring alerts. Zero values fall back to defaults.
type Thresholds struct {
	MinimumSecurityScore float64 `json:"minimum_security_score"`
	MaxCriticalIssues    int     `json:"max_critical_issues"`

	// maxCriticalSet distinguishes an explicit 0 from "use the default";
	// both happen to be 0 today but callers may raise the ceiling.
	maxCriticalSet bool
}

// NewThresholds builds explicit thresholds.
func NewThresholds(minimumScore float64, maxCritical int) Thresholds {
	return Thresholds{
		MinimumSecurityScore: minimumScore,
		MaxCriticalIssues:    maxCritical,
		maxCriticalSet:       true,
	}
}

func (t Thresholds) minimumScore() float64 {
	if t.MinimumSecurityScore > 0 {
		return t.MinimumSecurityScore
	}
	return constants.DefaultMinimumScore
}

func (t Thresholds) maxCritical() int {
	if t.maxCriticalSet {
		return t.MaxCriticalIssues
	}
	return constants.DefaultMaxCriticalIssues
}

// ThresholdAlert is one violated monitoring threshold.
type ThresholdAlert struct {
	Type              string `json:"type"`
	Severity          string `json:"severity"`
	Message           string `json:"message"`
	RecommendedAction string `json:"recommended_action"`
}

// CategoryDelta reports a per-category score movement against the baseline.
type CategoryDelta struct {
	Category string  `json:"category"`
	Baseline float64 `json:"baseline_score"`
	Current  float64 `json:"current_score"`
	Delta    float64 `json:"delta"`
}

// MonitoringResult is one monitoring cycle: the current scan, optionally
// compared against a caller-supplied baseline, plus threshold alerts.
// The engine stores no history; the baseline travels with each call.
type MonitoringResult struct {
	Current        *ScanResult      `json:"current"`
	Baseline       *ScanResult      `json:"baseline,omitempty"`
	ScoreDelta     *float64         `json:"score_delta,omitempty"`
	Direction      string           `json:"direction,omitempty"`
	Significance   string           `json:"significance,omitempty"`
	CategoryDeltas []CategoryDelta  `json:"per_category_deltas,omitempty"`
	Alerts         []ThresholdAlert `json:"threshold_alerts,omitempty"`
	OverallStatus  string           `json:"overall_status"`
}

// categoryDeltaBar is the per-category movement worth reporting.
const categoryDeltaBar = 5.0

// Monitor runs one scan and, when a baseline is supplied, computes the score
// delta, direction, significance, and per-category movements. Threshold
// checks always run against the current scan.
func (o *Orchestrator) Monitor(ctx context.Context, rawTarget, profileName string, overrides map[string]bool, baseline *ScanResult, thresholds Thresholds) (*MonitoringResult, error) {
	current, err := o.Scan(ctx, rawTarget, profileName, overrides)
	if err != nil {
		return nil, err
	}

	result := &MonitoringResult{Current: current}

	if baseline != nil {
		result.Baseline = baseline
		delta := current.OverallScore - baseline.OverallScore
		result.ScoreDelta = &delta
		result.Direction = deltaDirection(delta)
		result.Significance = deltaSignificance(delta)
		result.CategoryDeltas = categoryDeltas(baseline, current)
	}

	result.Alerts = checkThresholds(current, thresholds)
	if len(result.Alerts) == 0 {
		result.OverallStatus = "PASS"
	} else {
		result.OverallStatus = "FAIL"
	}

	return result, nil
}

func deltaDirection(delta float64) string {
	switch {
	case delta > 0:
		return "Improved"
	case delta < 0:
		return "Degraded"
	default:
		return "Unchanged"
	}
}

func deltaSignificance(delta float64) string {
	magnitude := math.Abs(delta)
	switch {
	case magnitude < 2:
		return "Minimal"
	case magnitude < 5:
		return "Minor"
	case magnitude < 10:
		return "Moderate"
	default:
		return "Significant"
	}
}

// categoryDeltas reports categories that moved by at least the delta bar in
// either direction. Only categories successful in both scans are compared.
func categoryDeltas(baseline, current *ScanResult) []CategoryDelta {
	var deltas []CategoryDelta
	for _, currentOutcome := range current.Outcomes {
		if !currentOutcome.Success {
			continue
		}
		baselineOutcome, ok := baseline.Outcome(currentOutcome.Analyzer)
		if !ok || !baselineOutcome.Success {
			continue
		}
		delta := currentOutcome.Score - baselineOutcome.Score
		if math.Abs(delta) < categoryDeltaBar {
			continue
		}
		deltas = append(deltas, CategoryDelta{
			Category: currentOutcome.Analyzer,
			Baseline: baselineOutcome.Score,
			Current:  currentOutcome.Score,
			Delta:    delta,
		})
	}
	return deltas
}

// checkThresholds produces one alert per violated threshold.
func checkThresholds(current *ScanResult, thresholds Thresholds) []ThresholdAlert {
	var alerts []ThresholdAlert

	if minimum := thresholds.minimumScore(); current.OverallScore < minimum {
		alerts = append(alerts, ThresholdAlert{
			Type:     "security_score_below_threshold",
			Severity: "high",
			Message: fmt.Sprintf("Overall security score %.1f is below the minimum of %.1f",
				current.OverallScore, minimum),
			RecommendedAction: "Review the prioritized recommendations and remediate the highest-priority findings",
		})
	}

	if maximum := thresholds.maxCritical(); current.Posture.CriticalIssues > maximum {
		alerts = append(alerts, ThresholdAlert{
			Type:     "critical_issues_above_threshold",
			Severity: "critical",
			Message: fmt.Sprintf("%d critical issue(s) found; at most %d allowed",
				current.Posture.CriticalIssues, maximum),
			RecommendedAction: "Address every critical finding before the next monitoring cycle",
		})
	}

	return alerts
}
