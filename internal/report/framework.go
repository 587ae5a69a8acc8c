package report

import (
	"fmt"
	"sort"

	"github.com/webposture/webposture/internal/orchestrator"
	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// DefaultFrameworkName is used when the caller does not name a framework.
const DefaultFrameworkName = "owasp_top10"

// Control is one framework requirement evaluated against a scored category.
// A control is satisfied when its category succeeded and met MinimumScore.
type Control struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	MinimumScore float64 `json:"minimum_score"`
}

// Framework is a named compliance control list.
type Framework struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Controls []Control `json:"controls"`
}

// frameworks holds the supported control lists. The OWASP subset covers the
// controls this engine can actually evidence from a scan; controls that need
// code review or runtime testing are deliberately absent.
var frameworks = map[string]Framework{
	"owasp_top10": {
		ID:   "owasp_top10",
		Name: "OWASP Top 10 (2021)",
		Controls: []Control{
			{
				ID:           "A02:2021",
				Title:        "Cryptographic Failures",
				Description:  "Transport encryption uses current protocol versions, strong ciphers, and a valid certificate",
				Category:     CategoryTLS,
				MinimumScore: 80,
			},
			{
				ID:           "A05:2021",
				Title:        "Security Misconfiguration",
				Description:  "HTTP response headers enforce browser-side protections against injection and framing",
				Category:     CategoryHeaders,
				MinimumScore: 80,
			},
		},
	},
}

// FrameworkNames lists the supported frameworks in a stable order.
func FrameworkNames() []string {
	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ControlResult is one evaluated control.
type ControlResult struct {
	Control   Control `json:"control"`
	Compliant bool    `json:"compliant"`
	Evidence  string  `json:"evidence"`
}

// RoadmapPhase is one step of the remediation roadmap.
type RoadmapPhase struct {
	Phase   string   `json:"phase"`
	Window  string   `json:"window"`
	Actions []string `json:"actions"`
}

// ComplianceSection is the framework gap assessment.
type ComplianceSection struct {
	Framework       string          `json:"framework"`
	Controls        []ControlResult `json:"controls"`
	CompliantCount  int             `json:"compliant_count"`
	NonCompliant    int             `json:"non_compliant_count"`
	ComplianceScore float64         `json:"compliance_score"`
	CriticalGaps    []string        `json:"critical_gaps,omitempty"`
	Roadmap         []RoadmapPhase  `json:"remediation_roadmap"`
}

// buildCompliance evaluates the named framework against the normalized scan.
func buildCompliance(normalized *Normalized, frameworkName string) (*ComplianceSection, error) {
	framework, ok := frameworks[frameworkName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", secerrors.ErrUnknownFramework, frameworkName)
	}

	section := &ComplianceSection{Framework: framework.Name}

	for _, control := range framework.Controls {
		findings := normalized.Categories[control.Category]
		result := ControlResult{Control: control}

		switch {
		case !findings.Present:
			result.Evidence = fmt.Sprintf("The %s assessment was not part of this scan", categoryLabel(control.Category))
		case !findings.Success:
			result.Evidence = fmt.Sprintf("The %s assessment failed: %s", categoryLabel(control.Category), findings.Error)
		case findings.Score >= control.MinimumScore:
			result.Compliant = true
			result.Evidence = fmt.Sprintf("%s scored %.0f/100, meeting the %.0f threshold",
				categoryLabel(control.Category), findings.Score, control.MinimumScore)
		default:
			result.Evidence = fmt.Sprintf("%s scored %.0f/100, below the %.0f threshold",
				categoryLabel(control.Category), findings.Score, control.MinimumScore)
		}

		if result.Compliant {
			section.CompliantCount++
		} else {
			section.NonCompliant++
			section.CriticalGaps = append(section.CriticalGaps,
				fmt.Sprintf("%s %s: %s", control.ID, control.Title, result.Evidence))
		}
		section.Controls = append(section.Controls, result)
	}

	total := len(framework.Controls)
	if total > 0 {
		section.ComplianceScore = float64(section.CompliantCount) / float64(total) * 100
	}

	section.Roadmap = remediationRoadmap(normalized)
	return section, nil
}

// remediationRoadmap phases the recommendations into a three-step plan.
func remediationRoadmap(normalized *Normalized) []RoadmapPhase {
	phases := []RoadmapPhase{
		{Phase: "Phase 1: Critical remediation", Window: "0-30 days"},
		{Phase: "Phase 2: Hardening", Window: "30-90 days"},
		{Phase: "Phase 3: Continuous improvement", Window: "90+ days"},
	}

	for _, rec := range allRecommendations(normalized) {
		switch orchestrator.ClassifyPriority(rec) {
		case orchestrator.PriorityCritical, orchestrator.PriorityHigh:
			phases[0].Actions = append(phases[0].Actions, rec)
		case orchestrator.PriorityMedium:
			phases[1].Actions = append(phases[1].Actions, rec)
		default:
			phases[2].Actions = append(phases[2].Actions, rec)
		}
	}

	// The final phase always has a standing action even on a clean scan.
	phases[2].Actions = append(phases[2].Actions,
		"Schedule recurring scans and compare against the recorded baseline")
	return phases
}
