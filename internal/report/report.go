package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/webposture/webposture/internal/analyzer"
	"github.com/webposture/webposture/internal/orchestrator"
	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// Type selects the report shape.
type Type string

const (
	TypeExecutive  Type = "executive"
	TypeTechnical  Type = "technical"
	TypeCompliance Type = "compliance"
	TypeQuick      Type = "quick"
)

// ReportTypes lists the supported shapes in a stable order.
func ReportTypes() []Type {
	return []Type{TypeExecutive, TypeTechnical, TypeCompliance, TypeQuick}
}

// Category names used by the normalized schema. The first three mirror the
// analyzer names; general absorbs outcomes from unrecognized analyzers so
// externally produced data never disappears silently.
const (
	CategoryHeaders = analyzer.NameHeaders
	CategoryTLS     = analyzer.NameTLS
	CategoryDNS     = analyzer.NameDNS
	CategoryGeneral = "general"
)

var knownCategories = []string{CategoryHeaders, CategoryTLS, CategoryDNS}

// CategoryFindings is one category of the normalized schema.
type CategoryFindings struct {
	Present         bool     `json:"present"`
	Success         bool     `json:"success"`
	Score           float64  `json:"score"`
	Grade           string   `json:"grade,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Normalized is the common schema every report is rendered from. The overall
// score is recomputed here rather than trusted from the input because scan
// data may originate outside this process.
type Normalized struct {
	Target       string                      `json:"target"`
	ScannedAt    time.Time                   `json:"scanned_at"`
	Categories   map[string]CategoryFindings `json:"categories"`
	OverallScore float64                     `json:"overall_score"`
	OverallGrade string                      `json:"overall_grade"`
	RiskLevel    string                      `json:"risk_level"`
}

// Summary is the condensed posture line shared by all report shapes.
type Summary struct {
	Target       string  `json:"target"`
	OverallScore float64 `json:"overall_score"`
	OverallGrade string  `json:"overall_grade"`
	RiskLevel    string  `json:"risk_level"`
}

// ExecutiveSection is the leadership-facing narrative.
type ExecutiveSection struct {
	KeyFindings      []string            `json:"key_findings"`
	CriticalIssues   []string            `json:"critical_issues,omitempty"`
	ImmediateActions []string            `json:"immediate_actions,omitempty"`
	BusinessImpact   string              `json:"business_impact"`
	NextSteps        map[string][]string `json:"next_steps"`
}

// CategoryDetail is one category's full findings in a technical report.
type CategoryDetail struct {
	Category string `json:"category"`
	CategoryFindings
}

// TechnicalSection carries per-category detail plus bucketed vulnerabilities,
// phased recommendations, and copy-paste remediation snippets.
type TechnicalSection struct {
	Categories      []CategoryDetail     `json:"categories"`
	Vulnerabilities map[string][]string  `json:"vulnerabilities"`
	Remediation     map[string][]string  `json:"remediation_phases"`
	Snippets        []RemediationSnippet `json:"remediation_snippets,omitempty"`
}

// RemediationSnippet is a literal configuration value the operator can apply
// as-is.
type RemediationSnippet struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// QuickSection is the condensed view.
type QuickSection struct {
	TopRecommendations []string `json:"top_recommendations"`
}

// Report is the rendered output. Exactly one of the section pointers matching
// Type is populated; Compliance may additionally be attached to executive and
// technical reports on request.
type Report struct {
	Type        Type               `json:"report_type"`
	GeneratedAt time.Time          `json:"generated_at"`
	Summary     Summary            `json:"summary"`
	Normalized  *Normalized        `json:"normalized_data,omitempty"`
	Executive   *ExecutiveSection  `json:"executive,omitempty"`
	Technical   *TechnicalSection  `json:"technical,omitempty"`
	Compliance  *ComplianceSection `json:"compliance,omitempty"`
	Quick       *QuickSection      `json:"quick,omitempty"`
}

// Options tune report generation beyond the shape selection.
type Options struct {
	// IncludeCompliance attaches the framework mapping to executive and
	// technical reports. Compliance reports always carry it.
	IncludeCompliance bool
	// Framework names the compliance framework; empty means owasp_top10.
	Framework string
}

const (
	quickRecommendationLimit = 5
	executiveActionLimit     = 5
	categoryAttentionBar     = 70.0
)

// Generate renders one report from a completed scan.
func Generate(scan *orchestrator.ScanResult, reportType Type, opts Options) (*Report, error) {
	if scan == nil {
		return nil, secerrors.ErrNoScanData
	}

	normalized := Normalize(scan.Target.Domain, scan.Timestamp, scan.Outcomes)
	return generate(normalized, reportType, opts)
}

// GenerateFromOutcomes renders a report from externally supplied analyzer
// outcomes, bypassing the orchestrator result envelope.
func GenerateFromOutcomes(target string, outcomes []analyzer.Outcome, reportType Type, opts Options) (*Report, error) {
	if len(outcomes) == 0 {
		return nil, secerrors.ErrNoScanData
	}
	return generate(Normalize(target, time.Time{}, outcomes), reportType, opts)
}

func generate(normalized *Normalized, reportType Type, opts Options) (*Report, error) {
	framework := opts.Framework
	if framework == "" {
		framework = DefaultFrameworkName
	}

	report := &Report{
		Type:        reportType,
		GeneratedAt: time.Now().UTC(),
		Summary: Summary{
			Target:       normalized.Target,
			OverallScore: normalized.OverallScore,
			OverallGrade: normalized.OverallGrade,
			RiskLevel:    normalized.RiskLevel,
		},
		Normalized: normalized,
	}

	switch reportType {
	case TypeExecutive:
		report.Executive = buildExecutive(normalized)
	case TypeTechnical:
		report.Technical = buildTechnical(normalized)
	case TypeCompliance:
		opts.IncludeCompliance = true
	case TypeQuick:
		report.Quick = &QuickSection{TopRecommendations: topRecommendations(normalized, quickRecommendationLimit)}
	default:
		return nil, fmt.Errorf("%w: %q", secerrors.ErrUnknownReportType, reportType)
	}

	if opts.IncludeCompliance {
		compliance, err := buildCompliance(normalized, framework)
		if err != nil {
			return nil, err
		}
		report.Compliance = compliance
	}

	return report, nil
}

// Normalize folds analyzer outcomes into the category schema and recomputes
// the overall posture from scratch.
func Normalize(target string, scannedAt time.Time, outcomes []analyzer.Outcome) *Normalized {
	normalized := &Normalized{
		Target:     target,
		ScannedAt:  scannedAt,
		Categories: make(map[string]CategoryFindings),
	}
	for _, name := range knownCategories {
		normalized.Categories[name] = CategoryFindings{}
	}

	general := CategoryFindings{}
	for _, outcome := range outcomes {
		findings := CategoryFindings{
			Present:         true,
			Success:         outcome.Success,
			Score:           outcome.Score,
			Grade:           outcome.Grade,
			Issues:          outcome.Issues,
			Strengths:       outcome.Strengths,
			Recommendations: outcome.Recommendations,
			Error:           outcome.Error,
		}
		if isKnownCategory(outcome.Analyzer) {
			normalized.Categories[outcome.Analyzer] = findings
			continue
		}
		// Unrecognized analyzers are folded together rather than dropped.
		general.Present = true
		general.Success = general.Success || outcome.Success
		general.Issues = append(general.Issues, outcome.Issues...)
		general.Strengths = append(general.Strengths, outcome.Strengths...)
		general.Recommendations = append(general.Recommendations, outcome.Recommendations...)
	}
	normalized.Categories[CategoryGeneral] = general

	normalized.OverallScore = overallScore(normalized.Categories)
	normalized.OverallGrade = analyzer.Grade(normalized.OverallScore)
	normalized.RiskLevel = riskLevel(normalized.OverallScore)
	return normalized
}

func isKnownCategory(name string) bool {
	for _, known := range knownCategories {
		if name == known {
			return true
		}
	}
	return false
}

// overallScore mirrors the orchestrator's weighted aggregation so a report
// built from external data carries a defensible number.
func overallScore(categories map[string]CategoryFindings) float64 {
	weights := map[string]float64{
		CategoryHeaders: 0.3,
		CategoryTLS:     0.4,
		CategoryDNS:     0.3,
	}

	var weightedSum, weightTotal float64
	for name, weight := range weights {
		findings := categories[name]
		if !findings.Present || !findings.Success {
			continue
		}
		weightedSum += findings.Score * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func riskLevel(score float64) string {
	switch {
	case score >= 90:
		return "Very Low"
	case score >= 80:
		return "Low"
	case score >= 70:
		return "Medium"
	case score >= 60:
		return "High"
	default:
		return "Critical"
	}
}

// categoryLabel maps schema keys to reader-facing names.
func categoryLabel(name string) string {
	switch name {
	case CategoryHeaders:
		return "HTTP security headers"
	case CategoryTLS:
		return "TLS and certificates"
	case CategoryDNS:
		return "DNS and email security"
	default:
		return "general findings"
	}
}

func buildExecutive(normalized *Normalized) *ExecutiveSection {
	section := &ExecutiveSection{
		BusinessImpact: businessImpact(normalized.RiskLevel),
		NextSteps:      nextSteps(normalized),
	}

	for _, name := range knownCategories {
		findings := normalized.Categories[name]
		if !findings.Present {
			continue
		}
		if !findings.Success {
			section.KeyFindings = append(section.KeyFindings,
				fmt.Sprintf("The %s assessment could not be completed (%s)", categoryLabel(name), findings.Error))
			continue
		}
		if findings.Score < categoryAttentionBar {
			section.KeyFindings = append(section.KeyFindings,
				fmt.Sprintf("%s scored %.0f/100 (grade %s) and needs attention",
					categoryLabel(name), findings.Score, findings.Grade))
		}
	}

	// DNSSEC and DMARC gaps get called out even when the category score is
	// otherwise acceptable; they are the findings executives ask about.
	for _, issue := range normalized.Categories[CategoryDNS].Issues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "dnssec") || strings.Contains(lower, "dmarc") {
			section.KeyFindings = append(section.KeyFindings, issue)
		}
	}
	if len(section.KeyFindings) == 0 {
		section.KeyFindings = []string{
			fmt.Sprintf("Security posture is %s with an overall score of %.0f/100",
				strings.ToLower(normalized.RiskLevel), normalized.OverallScore),
		}
	}

	for _, findings := range normalized.Categories {
		for _, issue := range findings.Issues {
			if orchestrator.ClassifyPriority(issue) == orchestrator.PriorityCritical {
				section.CriticalIssues = append(section.CriticalIssues, issue)
			}
		}
	}
	sort.Strings(section.CriticalIssues)

	for _, rec := range allRecommendations(normalized) {
		priority := orchestrator.ClassifyPriority(rec)
		if priority == orchestrator.PriorityCritical || priority == orchestrator.PriorityHigh {
			section.ImmediateActions = append(section.ImmediateActions, rec)
		}
		if len(section.ImmediateActions) == executiveActionLimit {
			break
		}
	}

	return section
}

func businessImpact(risk string) string {
	switch risk {
	case "Very Low":
		return "Current configuration presents minimal exposure. Maintain the existing controls and re-assess on a regular cadence."
	case "Low":
		return "Exposure is limited, but the remaining gaps give attackers a foothold for phishing or downgrade attacks. Closing them is low-cost."
	case "Medium":
		return "Configuration gaps could enable interception of user traffic or brand impersonation via email spoofing. Remediation should be scheduled this quarter."
	case "High":
		return "Significant weaknesses expose users and the brand to practical attacks. Remediation should begin immediately."
	default:
		return "The assessed surface is exposed to well-known, actively exploited attack classes. Treat remediation as an incident-level priority."
	}
}

// nextSteps buckets remediation guidance by the urgency the risk level
// implies.
func nextSteps(normalized *Normalized) map[string][]string {
	steps := map[string][]string{
		"immediate":  {},
		"short_term": {},
		"long_term":  {},
	}
	for _, rec := range allRecommendations(normalized) {
		switch orchestrator.ClassifyPriority(rec) {
		case orchestrator.PriorityCritical, orchestrator.PriorityHigh:
			steps["immediate"] = append(steps["immediate"], rec)
		case orchestrator.PriorityMedium:
			steps["short_term"] = append(steps["short_term"], rec)
		default:
			steps["long_term"] = append(steps["long_term"], rec)
		}
	}
	return steps
}

func buildTechnical(normalized *Normalized) *TechnicalSection {
	section := &TechnicalSection{
		Vulnerabilities: map[string][]string{},
		Remediation:     nextSteps(normalized),
	}

	for _, name := range append(append([]string{}, knownCategories...), CategoryGeneral) {
		findings := normalized.Categories[name]
		if !findings.Present {
			continue
		}
		section.Categories = append(section.Categories, CategoryDetail{Category: name, CategoryFindings: findings})

		for _, issue := range findings.Issues {
			switch orchestrator.ClassifyPriority(issue) {
			case orchestrator.PriorityCritical:
				section.Vulnerabilities["critical"] = append(section.Vulnerabilities["critical"], issue)
			case orchestrator.PriorityHigh, orchestrator.PriorityMedium:
				section.Vulnerabilities["medium"] = append(section.Vulnerabilities["medium"], issue)
			default:
				section.Vulnerabilities["low"] = append(section.Vulnerabilities["low"], issue)
			}
		}
	}

	section.Snippets = remediationSnippets(normalized.Categories[CategoryHeaders])
	return section
}

// headerSnippets are the literal values recommended when a header is missing
// or misconfigured.
var headerSnippets = []RemediationSnippet{
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload"},
	{"Content-Security-Policy", "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'"},
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// remediationSnippets returns copy-paste values for every catalog header the
// findings mention as missing or problematic.
func remediationSnippets(headers CategoryFindings) []RemediationSnippet {
	mentioned := func(header string) bool {
		needle := strings.ToLower(header)
		for _, issue := range headers.Issues {
			if strings.Contains(strings.ToLower(issue), needle) {
				return true
			}
		}
		return false
	}

	var snippets []RemediationSnippet
	for _, snippet := range headerSnippets {
		if mentioned(snippet.Header) {
			snippets = append(snippets, snippet)
		}
	}
	return snippets
}

// allRecommendations flattens recommendations across categories in a fixed
// category order, deduplicated.
func allRecommendations(normalized *Normalized) []string {
	seen := make(map[string]bool)
	var all []string
	for _, name := range append(append([]string{}, knownCategories...), CategoryGeneral) {
		for _, rec := range normalized.Categories[name].Recommendations {
			if rec == "" || seen[rec] {
				continue
			}
			seen[rec] = true
			all = append(all, rec)
		}
	}
	return all
}

// topRecommendations returns the highest-priority recommendations, capped.
func topRecommendations(normalized *Normalized, limit int) []string {
	prioritized := orchestrator.PrioritizeRecommendations(allRecommendations(normalized))
	top := prioritized.Top
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}
