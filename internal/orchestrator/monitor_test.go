package orchestrator

import (
	"context"
	"testing"

	"github.com/webposture/webposture/internal/analyzer"
)

// baselineResult builds a minimal prior scan for delta comparisons.
func baselineResult(overall float64, categoryScores map[string]float64) *ScanResult {
	result := &ScanResult{
		OverallScore: overall,
		OverallGrade: analyzer.Grade(overall),
	}
	for name, score := range categoryScores {
		result.Outcomes = append(result.Outcomes, analyzer.Outcome{
			Analyzer: name,
			Success:  true,
			Score:    score,
			Grade:    analyzer.Grade(score),
		})
	}
	return result
}

func TestMonitor_BaselineDelta(t *testing.T) {
	o := stubbed(scoring(analyzer.NameHeaders, 78))
	baseline := baselineResult(70, map[string]float64{analyzer.NameHeaders: 70})

	result, err := o.Monitor(context.Background(), "example.com", "quick", nil,
		baseline, NewThresholds(50, 5))
	if err != nil {
		t.Fatalf("Monitor error: %v", err)
	}

	if result.ScoreDelta == nil {
		t.Fatal("score delta missing with a baseline supplied")
	}
	if !almostEqual(*result.ScoreDelta, 8) {
		t.Errorf("score delta = %.2f, want 8", *result.ScoreDelta)
	}
	if result.Direction != "Improved" {
		t.Errorf("direction = %q, want Improved", result.Direction)
	}
	if result.Significance != "Moderate" {
		t.Errorf("significance = %q, want Moderate", result.Significance)
	}

	if len(result.CategoryDeltas) != 1 {
		t.Fatalf("category deltas = %+v, want the headers movement", result.CategoryDeltas)
	}
	delta := result.CategoryDeltas[0]
	if delta.Category != analyzer.NameHeaders || !almostEqual(delta.Delta, 8) {
		t.Errorf("category delta = %+v, want headers +8", delta)
	}

	if result.OverallStatus != "PASS" {
		t.Errorf("status = %q, want PASS with no alerts", result.OverallStatus)
	}
}

func TestMonitor_ScoreBelowThreshold(t *testing.T) {
	o := stubbed(scoring(analyzer.NameHeaders, 60))

	result, err := o.Monitor(context.Background(), "example.com", "quick", nil,
		nil, NewThresholds(75, 5))
	if err != nil {
		t.Fatalf("Monitor error: %v", err)
	}

	if len(result.Alerts) != 1 {
		t.Fatalf("alerts = %+v, want exactly one", result.Alerts)
	}
	alert := result.Alerts[0]
	if alert.Type != "security_score_below_threshold" || alert.Severity != "high" {
		t.Errorf("alert = %+v, want a high-severity score alert", alert)
	}
	if result.OverallStatus != "FAIL" {
		t.Errorf("status = %q, want FAIL", result.OverallStatus)
	}
}

func TestMonitor_CriticalIssuesAboveThreshold(t *testing.T) {
	withCritical := &stubAnalyzer{name: analyzer.NameTLS, script: []analyzer.Outcome{{
		Success: true,
		Score:   92,
		Grade:   "A",
		Issues:  []string{"Certificate has expired"},
	}}}
	o := stubbed(withCritical)

	// Zero-value thresholds: defaults allow no critical issues.
	result, err := o.Monitor(context.Background(), "example.com", "quick", nil, nil, Thresholds{})
	if err != nil {
		t.Fatalf("Monitor error: %v", err)
	}

	if len(result.Alerts) != 1 {
		t.Fatalf("alerts = %+v, want exactly one", result.Alerts)
	}
	if result.Alerts[0].Type != "critical_issues_above_threshold" || result.Alerts[0].Severity != "critical" {
		t.Errorf("alert = %+v, want a critical-issue alert", result.Alerts[0])
	}
	if result.OverallStatus != "FAIL" {
		t.Errorf("status = %q, want FAIL", result.OverallStatus)
	}
}

func TestMonitor_NoBaseline(t *testing.T) {
	o := stubbed(scoring(analyzer.NameHeaders, 90))

	result, err := o.Monitor(context.Background(), "example.com", "quick", nil, nil, NewThresholds(70, 0))
	if err != nil {
		t.Fatalf("Monitor error: %v", err)
	}
	if result.ScoreDelta != nil || result.Direction != "" || result.Significance != "" {
		t.Errorf("delta fields must stay empty without a baseline: %+v", result)
	}
	if result.OverallStatus != "PASS" {
		t.Errorf("status = %q, want PASS", result.OverallStatus)
	}
}

func TestMonitor_SmallCategoryMovementSuppressed(t *testing.T) {
	o := stubbed(scoring(analyzer.NameHeaders, 82))
	baseline := baselineResult(80, map[string]float64{analyzer.NameHeaders: 80})

	result, err := o.Monitor(context.Background(), "example.com", "quick", nil,
		baseline, NewThresholds(50, 5))
	if err != nil {
		t.Fatalf("Monitor error: %v", err)
	}
	if len(result.CategoryDeltas) != 0 {
		t.Errorf("category deltas = %+v, movements under 5 points should be suppressed", result.CategoryDeltas)
	}
	if result.Significance != "Minor" {
		t.Errorf("significance = %q, want Minor for a 2-point delta", result.Significance)
	}
}

func TestDeltaDirection(t *testing.T) {
	if got := deltaDirection(3.5); got != "Improved" {
		t.Errorf("deltaDirection(3.5) = %q", got)
	}
	if got := deltaDirection(-0.1); got != "Degraded" {
		t.Errorf("deltaDirection(-0.1) = %q", got)
	}
	if got := deltaDirection(0); got != "Unchanged" {
		t.Errorf("deltaDirection(0) = %q", got)
	}
}

func TestDeltaSignificance(t *testing.T) {
	tests := []struct {
		delta float64
		want  string
	}{
		{0, "Minimal"},
		{1.9, "Minimal"},
		{-3, "Minor"},
		{5, "Moderate"},
		{-9.9, "Moderate"},
		{10, "Significant"},
		{-25, "Significant"},
	}
	for _, tt := range tests {
		if got := deltaSignificance(tt.delta); got != tt.want {
			t.Errorf("deltaSignificance(%.1f) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}
