package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webposture/webposture/internal/analyzer"
	"github.com/webposture/webposture/internal/shared/constants"
	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// categoryWeights drive the composite score. Successful outcomes only; the
// denominator is renormalized over the categories that actually succeeded.
var categoryWeights = map[string]float64{
	analyzer.NameHeaders: 0.3,
	analyzer.NameTLS:     0.4,
	analyzer.NameDNS:     0.3,
}

// Posture is the qualitative summary derived from the quantitative score.
type Posture struct {
	RiskLevel           string   `json:"risk_level"`
	Label               string   `json:"label"`
	CriticalIssues      int      `json:"critical_issue_count"`
	HighIssues          int      `json:"high_issue_count"`
	MediumIssues        int      `json:"medium_issue_count"`
	Strengths           []string `json:"strengths,omitempty"`
	Weaknesses          []string `json:"weaknesses,omitempty"`
	ComplianceReadiness string   `json:"compliance_readiness"`
}

// ScanResult is the aggregate outcome of one scan. Immutable after
// construction; owned by the caller.
type ScanResult struct {
	ID                  string                     `json:"id"`
	Target              analyzer.Target            `json:"target"`
	ProfileUsed         string                     `json:"profile_used"`
	Outcomes            []analyzer.Outcome         `json:"outcomes"`
	SuccessfulAnalyzers int                        `json:"success_analyzer_count"`
	OverallScore        float64                    `json:"overall_score"`
	OverallGrade        string                     `json:"overall_grade"`
	Posture             Posture                    `json:"posture"`
	Recommendations     PrioritizedRecommendations `json:"recommendations_by_priority"`
	Duration            float64                    `json:"duration_seconds"`
	Timestamp           time.Time                  `json:"timestamp"`
}

// Outcome returns the outcome for one analyzer category, if present.
func (r *ScanResult) Outcome(name string) (analyzer.Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.Analyzer == name {
			return outcome, true
		}
	}
	return analyzer.Outcome{}, false
}

// Orchestrator coordinates analyzer execution for single-target scans and the
// batch, comparison, and monitoring operations built on top of them.
// Each call is stateless; an Orchestrator is safe for concurrent use.
type Orchestrator struct {
	Timeout         time.Duration // overall per-scan deadline
	AnalyzerTimeout time.Duration // per-attempt analyzer timeout
	DoHEndpoint     string
	RateLimit       int // batch requests per second; 0 means uncapped
	Logger          *zap.SugaredLogger

	// analyzerFactory builds the per-profile analyzer set. Tests replace it
	// with stubs.
	analyzerFactory func(profile Profile) []analyzer.Analyzer
	// backoffUnit is multiplied by the attempt number between retries.
	// Tests shrink it.
	backoffUnit time.Duration
}

// New returns an Orchestrator with production defaults.
func New(logger *zap.SugaredLogger) *Orchestrator {
	o := &Orchestrator{
		Timeout:         constants.DefaultScanTimeout,
		AnalyzerTimeout: constants.DefaultAnalyzerTimeout,
		DoHEndpoint:     constants.DefaultDoHEndpoint,
		Logger:          logger,
	}
	o.analyzerFactory = o.buildAnalyzers
	o.backoffUnit = constants.RetryBackoffUnit
	return o
}

func (o *Orchestrator) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return constants.DefaultScanTimeout
}

func (o *Orchestrator) backoff() time.Duration {
	if o.backoffUnit > 0 {
		return o.backoffUnit
	}
	return constants.RetryBackoffUnit
}

func (o *Orchestrator) analyzerTimeout() time.Duration {
	if o.AnalyzerTimeout > 0 {
		return o.AnalyzerTimeout
	}
	return constants.DefaultAnalyzerTimeout
}

// buildAnalyzers instantiates the analyzers a profile enables.
func (o *Orchestrator) buildAnalyzers(profile Profile) []analyzer.Analyzer {
	endpoint := o.DoHEndpoint
	if endpoint == "" {
		endpoint = constants.DefaultDoHEndpoint
	}

	var analyzers []analyzer.Analyzer
	if profile.IncludeHeaders {
		analyzers = append(analyzers, &analyzer.HeaderAnalyzer{Timeout: o.analyzerTimeout()})
	}
	if profile.IncludeSSL {
		analyzers = append(analyzers, &analyzer.TLSAnalyzer{Timeout: o.analyzerTimeout()})
	}
	if profile.IncludeDNS {
		analyzers = append(analyzers, &analyzer.DNSAnalyzer{
			Timeout:              constants.DefaultDNSTimeout,
			DoH:                  &analyzer.DoHClient{Endpoint: endpoint, Timeout: constants.DefaultDNSTimeout},
			IncludeSubdomains:    profile.IncludeSubdomains,
			CheckEmailSecurity:   profile.CheckEmailSecurity,
			SubdomainConcurrency: constants.DefaultSubdomainConcurrency,
		})
	}
	return analyzers
}

// Scan runs all enabled analyzers concurrently against one target and
// aggregates their outcomes. Analyzer failures never surface as errors; only
// malformed input or an unknown profile does.
func (o *Orchestrator) Scan(ctx context.Context, rawTarget, profileName string, overrides map[string]bool) (*ScanResult, error) {
	start := time.Now()

	target, err := analyzer.ParseTarget(rawTarget)
	if err != nil {
		return nil, err
	}

	profile, err := ResolveProfile(profileName, overrides)
	if err != nil {
		return nil, err
	}

	analyzers := o.analyzerFactory(profile)
	if len(analyzers) == 0 {
		return nil, fmt.Errorf("profile %q enables no analyzers", profile.Name)
	}

	o.logger().Debugw("dispatching scan",
		"target", target.Domain, "profile", profile.Name, "analyzers", len(analyzers))

	scanCtx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	outcomes := make([]analyzer.Outcome, len(analyzers))
	var wg sync.WaitGroup
	for i, a := range analyzers {
		wg.Add(1)
		go func(i int, a analyzer.Analyzer) {
			defer wg.Done()
			outcomes[i] = o.runWithRetry(scanCtx, a, target)
		}(i, a)
	}
	// Aggregation must wait for every dispatched analyzer; the deadline on
	// scanCtx guarantees the goroutines terminate.
	wg.Wait()

	result := o.aggregate(target, profile, outcomes)
	result.Duration = time.Since(start).Seconds()
	return result, nil
}

// runWithRetry wraps one analyzer call in the bounded retry loop: up to
// MaxRetryAttempts attempts with a linear backoff of attempt*1s between them.
// A scan deadline expiring at any point yields a timeout failure outcome.
func (o *Orchestrator) runWithRetry(ctx context.Context, a analyzer.Analyzer, target analyzer.Target) analyzer.Outcome {
	var last analyzer.Outcome

	for attempt := 1; attempt <= constants.MaxRetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return timeoutOutcome(a.Name())
		}

		last = a.Analyze(ctx, target)
		if last.Success {
			return last
		}

		o.logger().Debugw("analyzer attempt failed",
			"analyzer", a.Name(), "target", target.Domain, "attempt", attempt, "error", last.Error)

		if attempt == constants.MaxRetryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return timeoutOutcome(a.Name())
		case <-time.After(time.Duration(attempt) * o.backoff()):
		}
	}

	// All attempts failed; keep the last failure.
	return last
}

// timeoutOutcome records an analyzer cut off by the scan deadline.
func timeoutOutcome(name string) analyzer.Outcome {
	return analyzer.Outcome{
		Analyzer: name,
		Success:  false,
		Error:    secerrors.ErrAnalyzerTimeout.Error(),
	}
}

// aggregate computes the weighted composite score, posture, and prioritized
// recommendations from the joined outcomes.
func (o *Orchestrator) aggregate(target analyzer.Target, profile Profile, outcomes []analyzer.Outcome) *ScanResult {
	var weightedSum, weightTotal float64
	successes := 0
	var recommendations []string

	for _, outcome := range outcomes {
		recommendations = append(recommendations, outcome.Recommendations...)
		if !outcome.Success {
			continue
		}
		successes++
		weight := categoryWeights[outcome.Analyzer]
		weightedSum += outcome.Score * weight
		weightTotal += weight
	}

	score := 0.0
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}

	return &ScanResult{
		ID:                  uuid.NewString(),
		Target:              target,
		ProfileUsed:         profile.Name,
		Outcomes:            outcomes,
		SuccessfulAnalyzers: successes,
		OverallScore:        score,
		OverallGrade:        analyzer.Grade(score),
		Posture:             buildPosture(score, outcomes),
		Recommendations:     PrioritizeRecommendations(recommendations),
		Timestamp:           time.Now().UTC(),
	}
}

// buildPosture derives the qualitative assessment from the composite score
// and the per-outcome findings.
func buildPosture(score float64, outcomes []analyzer.Outcome) Posture {
	posture := Posture{
		ComplianceReadiness: complianceReadiness(score),
	}

	switch {
	case score >= 90:
		posture.RiskLevel, posture.Label = "Very Low", "Excellent"
	case score >= 80:
		posture.RiskLevel, posture.Label = "Low", "Good"
	case score >= 70:
		posture.RiskLevel, posture.Label = "Medium", "Fair"
	case score >= 60:
		posture.RiskLevel, posture.Label = "High", "Poor"
	default:
		posture.RiskLevel, posture.Label = "Critical", "Very Poor"
	}

	for _, outcome := range outcomes {
		for _, issue := range outcome.Issues {
			switch ClassifyPriority(issue) {
			case PriorityCritical:
				posture.CriticalIssues++
			case PriorityHigh:
				posture.HighIssues++
			case PriorityMedium:
				posture.MediumIssues++
			}
		}

		if !outcome.Success {
			posture.Weaknesses = append(posture.Weaknesses,
				fmt.Sprintf("%s assessment failed: %s", outcome.Analyzer, outcome.Error))
			continue
		}
		switch {
		case outcome.Score >= 80:
			posture.Strengths = append(posture.Strengths,
				fmt.Sprintf("Strong %s configuration (score %.0f)", outcome.Analyzer, outcome.Score))
		case outcome.Score < 70:
			posture.Weaknesses = append(posture.Weaknesses,
				fmt.Sprintf("%s configuration needs attention (score %.0f)", outcome.Analyzer, outcome.Score))
		}
	}

	return posture
}

// complianceReadiness buckets the composite score into an audit-readiness
// label.
func complianceReadiness(score float64) string {
	switch {
	case score >= 90:
		return "Audit ready"
	case score >= 75:
		return "Minor remediation required"
	case score >= 60:
		return "Moderate remediation required"
	default:
		return "Significant remediation required"
	}
}
