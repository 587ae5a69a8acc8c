package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/webposture/webposture/internal/analyzer"
	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// ComparisonResult ranks multiple targets by their overall score.
type ComparisonResult struct {
	Ranked                   []*ScanResult    `json:"ranked"`
	Best                     *ScanResult      `json:"best"`
	Worst                    *ScanResult      `json:"worst"`
	AverageScore             float64          `json:"average_score"`
	CommonIssues             []IssueFrequency `json:"common_issues,omitempty"`
	ImprovementOpportunities []string         `json:"improvement_opportunities,omitempty"`
	Failed                   []TargetError    `json:"failed,omitempty"`
}

// improvementBar is the cross-target average below which a category is
// flagged as a fleet-wide improvement opportunity.
const improvementBar = 80.0

// Compare batch-scans the targets and ranks the successful results. At least
// two targets must scan successfully.
func (o *Orchestrator) Compare(ctx context.Context, targets []string, profileName string, overrides map[string]bool, maxConcurrent int) (*ComparisonResult, error) {
	batch, err := o.BatchScan(ctx, targets, profileName, overrides, maxConcurrent)
	if err != nil {
		return nil, err
	}

	if len(batch.Successful) < 2 {
		return nil, fmt.Errorf("%w: got %d", secerrors.ErrNotEnoughResults, len(batch.Successful))
	}

	ranked := make([]*ScanResult, len(batch.Successful))
	copy(ranked, batch.Successful)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})

	result := &ComparisonResult{
		Ranked:       ranked,
		Best:         ranked[0],
		Worst:        ranked[len(ranked)-1],
		AverageScore: batch.Stats.AverageScore,
		CommonIssues: batch.Stats.CommonIssues,
		Failed:       batch.Failed,
	}
	result.ImprovementOpportunities = improvementOpportunities(ranked)

	return result, nil
}

// improvementOpportunities flags every category whose cross-target average
// score falls below the improvement bar.
func improvementOpportunities(scans []*ScanResult) []string {
	categorySums := make(map[string]float64)
	categoryCounts := make(map[string]int)

	for _, scan := range scans {
		for _, outcome := range scan.Outcomes {
			if !outcome.Success {
				continue
			}
			categorySums[outcome.Analyzer] += outcome.Score
			categoryCounts[outcome.Analyzer]++
		}
	}

	var opportunities []string
	for _, category := range []string{analyzer.NameHeaders, analyzer.NameTLS, analyzer.NameDNS} {
		count := categoryCounts[category]
		if count == 0 {
			continue
		}
		average := categorySums[category] / float64(count)
		if average < improvementBar {
			opportunities = append(opportunities,
				fmt.Sprintf("%s scores average %.1f across targets; prioritize fleet-wide %s remediation",
					category, average, category))
		}
	}
	return opportunities
}
