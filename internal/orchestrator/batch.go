package orchestrator

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/webposture/webposture/internal/shared/constants"
	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// TargetError records one target that could not be scanned at all.
type TargetError struct {
	Target string `json:"target"`
	Error  string `json:"error"`
}

// IssueFrequency counts how often one issue appears across targets.
type IssueFrequency struct {
	Issue         string  `json:"issue"`
	AffectedCount int     `json:"affected_count"`
	Percentage    float64 `json:"percentage"`
}

// AggregateStats summarizes a batch of successful scans.
type AggregateStats struct {
	AverageScore   float64            `json:"average_score"`
	MinScore       float64            `json:"min_score"`
	MaxScore       float64            `json:"max_score"`
	GradeHistogram map[string]int     `json:"grade_histogram"`
	CommonIssues   []IssueFrequency   `json:"common_issues,omitempty"`
	BestPractices  map[string]float64 `json:"best_practice_adoption"`
}

// BatchResult is the outcome of scanning multiple targets.
type BatchResult struct {
	Targets    []string       `json:"targets"`
	Successful []*ScanResult  `json:"successful"`
	Failed     []TargetError  `json:"failed,omitempty"`
	Stats      AggregateStats `json:"aggregate_stats"`
}

// bestPracticeFeatures maps adoption-rate labels onto the strength phrases
// the analyzers emit when the feature is present.
var bestPracticeFeatures = []struct {
	Label  string
	Marker string
}{
	{"hsts", "HSTS max-age"},
	{"csp_core_directives", "core source directives"},
	{"tls_1_3", "TLSv1.3 is supported"},
	{"dnssec", "DNSSEC is enabled"},
	{"spf_enforcing", "SPF enforces"},
	{"dmarc_enforcing", "DMARC enforces"},
	{"caa", "CAA restricts"},
}

// BatchScan scans many targets with bounded concurrency. True concurrency is
// min(maxConcurrent, len(targets), 10); the hard cap bounds outbound fan-out
// regardless of what the caller requests. Per-target failures are isolated
// into Failed and never abort sibling scans.
func (o *Orchestrator) BatchScan(ctx context.Context, targets []string, profileName string, overrides map[string]bool, maxConcurrent int) (*BatchResult, error) {
	if len(targets) == 0 {
		return nil, secerrors.ErrNoTargets
	}

	// Validate the profile once up front so a bad name fails fast instead of
	// once per target.
	if _, err := ResolveProfile(profileName, overrides); err != nil {
		return nil, err
	}

	concurrency := batchConcurrency(maxConcurrent, len(targets))
	o.logger().Infow("starting batch scan", "targets", len(targets), "concurrency", concurrency)

	var limiter *rate.Limiter
	if o.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.RateLimit), o.RateLimit)
	}

	result := &BatchResult{Targets: targets}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, target := range targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				_ = limiter.Wait(ctx)
			}

			scan, err := o.Scan(ctx, target, profileName, overrides)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, TargetError{Target: target, Error: err.Error()})
				return
			}
			result.Successful = append(result.Successful, scan)
		}(target)
	}
	wg.Wait()

	// Deterministic ordering regardless of completion order.
	sort.Slice(result.Successful, func(i, j int) bool {
		return result.Successful[i].Target.Raw < result.Successful[j].Target.Raw
	})
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Target < result.Failed[j].Target
	})

	result.Stats = aggregateStats(result.Successful)
	return result, nil
}

// batchConcurrency applies the hard fan-out cap.
func batchConcurrency(requested, targetCount int) int {
	if requested <= 0 {
		requested = constants.DefaultBatchConcurrency
	}
	concurrency := requested
	if targetCount < concurrency {
		concurrency = targetCount
	}
	if concurrency > constants.BatchConcurrencyCap {
		concurrency = constants.BatchConcurrencyCap
	}
	return concurrency
}

// aggregateStats reduces successful scans to fleet-level statistics.
func aggregateStats(scans []*ScanResult) AggregateStats {
	stats := AggregateStats{
		GradeHistogram: make(map[string]int),
		BestPractices:  make(map[string]float64),
	}
	if len(scans) == 0 {
		return stats
	}

	stats.MinScore = scans[0].OverallScore
	var sum float64
	for _, scan := range scans {
		score := scan.OverallScore
		sum += score
		if score < stats.MinScore {
			stats.MinScore = score
		}
		if score > stats.MaxScore {
			stats.MaxScore = score
		}
		stats.GradeHistogram[scan.OverallGrade]++
	}
	stats.AverageScore = sum / float64(len(scans))

	stats.CommonIssues = commonIssues(scans)
	stats.BestPractices = bestPracticeAdoption(scans)
	return stats
}

// commonIssues counts issues appearing on more than one target, most
// widespread first.
func commonIssues(scans []*ScanResult) []IssueFrequency {
	counts := make(map[string]int)
	for _, scan := range scans {
		seen := make(map[string]bool)
		for _, outcome := range scan.Outcomes {
			for _, issue := range outcome.Issues {
				if !seen[issue] {
					seen[issue] = true
					counts[issue]++
				}
			}
		}
	}

	var frequencies []IssueFrequency
	for issue, count := range counts {
		if count < 2 {
			continue
		}
		frequencies = append(frequencies, IssueFrequency{
			Issue:         issue,
			AffectedCount: count,
			Percentage:    float64(count) / float64(len(scans)) * 100,
		})
	}

	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].AffectedCount != frequencies[j].AffectedCount {
			return frequencies[i].AffectedCount > frequencies[j].AffectedCount
		}
		return frequencies[i].Issue < frequencies[j].Issue
	})
	return frequencies
}

// bestPracticeAdoption computes, per fixed feature, the fraction of targets
// whose strengths confirm it.
func bestPracticeAdoption(scans []*ScanResult) map[string]float64 {
	adoption := make(map[string]float64, len(bestPracticeFeatures))
	for _, feature := range bestPracticeFeatures {
		adopted := 0
		for _, scan := range scans {
			for _, outcome := range scan.Outcomes {
				if strengthsContain(outcome.Strengths, feature.Marker) {
					adopted++
					break
				}
			}
		}
		adoption[feature.Label] = float64(adopted) / float64(len(scans)) * 100
	}
	return adoption
}

func strengthsContain(strengths []string, marker string) bool {
	for _, strength := range strengths {
		if strings.Contains(strength, marker) {
			return true
		}
	}
	return false
}
