package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Severity levels for catalog headers. Each maps to a fixed scoring weight.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

var severityWeights = map[string]float64{
	SeverityHigh:   30,
	SeverityMedium: 20,
	SeverityLow:    10,
}

// headerSpec describes one catalog entry: how important the header is, how to
// evaluate its value, and what to recommend when it is absent.
type headerSpec struct {
	Name           string
	Severity       string
	Check          func(value string) (issues, strengths, recommendations []string)
	Recommendation string
}

// headerCatalog is the fixed set of security headers the analyzer scores.
var headerCatalog = []headerSpec{
	{
		Name:           "Strict-Transport-Security",
		Severity:       SeverityHigh,
		Check:          checkHSTS,
		Recommendation: "Add 'Strict-Transport-Security: max-age=31536000; includeSubDomains; preload'",
	},
	{
		Name:           "Content-Security-Policy",
		Severity:       SeverityHigh,
		Check:          checkCSP,
		Recommendation: "Implement a strict Content-Security-Policy appropriate for your application",
	},
	{
		Name:           "X-Frame-Options",
		Severity:       SeverityMedium,
		Check:          checkXFrameOptions,
		Recommendation: "Add 'X-Frame-Options: DENY' or 'SAMEORIGIN'",
	},
	{
		Name:           "X-Content-Type-Options",
		Severity:       SeverityMedium,
		Check:          checkXContentTypeOptions,
		Recommendation: "Add 'X-Content-Type-Options: nosniff'",
	},
	{
		Name:           "Referrer-Policy",
		Severity:       SeverityLow,
		Check:          checkReferrerPolicy,
		Recommendation: "Add 'Referrer-Policy: strict-origin-when-cross-origin' or 'no-referrer'",
	},
	{
		Name:           "X-XSS-Protection",
		Severity:       SeverityLow,
		Check:          checkXSSProtection,
		Recommendation: "Add 'X-XSS-Protection: 1; mode=block' (legacy browsers only; rely on CSP for modern ones)",
	},
	{
		Name:           "Permissions-Policy",
		Severity:       SeverityLow,
		Check:          checkPermissionsPolicy,
		Recommendation: "Add 'Permissions-Policy' to control browser features (e.g., 'geolocation=(), microphone=()')",
	},
}

// informationDisclosureHeaders expose implementation details and should be
// removed or obfuscated.
var informationDisclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// HeaderAnalyzer fetches one target URL and scores its HTTP response security
// headers against the fixed catalog.
type HeaderAnalyzer struct {
	Timeout time.Duration
	// Client overrides the default HTTP client; used by tests.
	Client *http.Client
}

func (h *HeaderAnalyzer) Name() string { return NameHeaders }

// Analyze issues one GET (redirects followed) and scores the final response's
// headers. Score = sum(weight*penalty) / sum(all catalog weights) * 100 where
// a clean header scores its full weight, a header with issues is discounted
// 20% per issue (floored at 30%), and a missing header scores zero.
func (h *HeaderAnalyzer) Analyze(ctx context.Context, target Target) Outcome {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: h.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL(), nil)
	if err != nil {
		return failure(NameHeaders, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return failure(NameHeaders, err)
	}
	defer resp.Body.Close()

	return scoreHeaders(resp.Header)
}

// scoreHeaders evaluates a header set against the catalog. Split out from
// Analyze so tests can exercise the scoring without a live server.
func scoreHeaders(headers http.Header) Outcome {
	outcome := Outcome{
		Analyzer: NameHeaders,
		Success:  true,
	}

	var earned, total float64
	for _, spec := range headerCatalog {
		weight := severityWeights[spec.Severity]
		total += weight

		value := headers.Get(spec.Name)
		if value == "" {
			outcome.Issues = append(outcome.Issues,
				fmt.Sprintf("Missing %s header (%s severity)", spec.Name, spec.Severity))
			outcome.Recommendations = append(outcome.Recommendations, spec.Recommendation)
			continue
		}

		issues, strengths, recs := spec.Check(value)
		outcome.Issues = append(outcome.Issues, issues...)
		outcome.Strengths = append(outcome.Strengths, strengths...)
		outcome.Recommendations = append(outcome.Recommendations, recs...)

		penalty := 1.0
		if len(issues) > 0 {
			penalty = 1 - float64(len(issues))*0.2
			if penalty < 0.3 {
				penalty = 0.3
			}
		}
		earned += weight * penalty
	}

	checkInformationDisclosure(headers, &outcome)

	outcome.Score = clampScore(earned / total * 100)
	outcome.Grade = Grade(outcome.Score)
	return outcome
}

// checkHSTS validates the Strict-Transport-Security header.
func checkHSTS(value string) (issues, strengths, recommendations []string) {
	lower := strings.ToLower(value)

	maxAge, ok := parseMaxAge(lower)
	switch {
	case !ok:
		issues = append(issues, "HSTS is missing the 'max-age' directive")
		recommendations = append(recommendations, "Set 'max-age=31536000' (1 year) in Strict-Transport-Security")
	case maxAge < 31536000:
		issues = append(issues, fmt.Sprintf("HSTS max-age is %d; at least 31536000 (1 year) is recommended", maxAge))
		recommendations = append(recommendations, "Increase HSTS max-age to at least 31536000")
	default:
		strengths = append(strengths, "HSTS max-age is at least one year")
	}

	if strings.Contains(lower, "includesubdomains") {
		strengths = append(strengths, "HSTS covers subdomains (includeSubDomains)")
	}
	if strings.Contains(lower, "preload") {
		strengths = append(strengths, "HSTS is preload-ready")
	}

	return issues, strengths, recommendations
}

// parseMaxAge extracts the max-age directive from an HSTS value.
func parseMaxAge(value string) (int64, bool) {
	idx := strings.Index(value, "max-age=")
	if idx < 0 {
		return 0, false
	}
	rest := value[idx+len("max-age="):]
	end := strings.IndexAny(rest, "; ")
	if end >= 0 {
		rest = rest[:end]
	}
	age, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return 0, false
	}
	return age, true
}

// checkCSP validates the Content-Security-Policy header.
func checkCSP(value string) (issues, strengths, recommendations []string) {
	lower := strings.ToLower(value)

	if strings.Contains(lower, "'unsafe-inline'") {
		issues = append(issues, "CSP contains 'unsafe-inline' which weakens script injection protection")
	}
	if strings.Contains(lower, "'unsafe-eval'") {
		issues = append(issues, "CSP contains 'unsafe-eval' which allows eval() and similar functions")
	}
	if containsBareWildcard(lower) {
		issues = append(issues, "CSP contains a wildcard (*) source which is too permissive")
	}

	coreDirectives := []string{"default-src", "script-src", "style-src", "img-src"}
	present := 0
	for _, directive := range coreDirectives {
		if strings.Contains(lower, directive) {
			present++
		}
	}
	if present >= 3 {
		strengths = append(strengths, fmt.Sprintf("CSP defines %d of 4 core source directives", present))
	}

	if len(issues) > 0 {
		recommendations = append(recommendations, "Review and strengthen your Content-Security-Policy")
	}
	return issues, strengths, recommendations
}

// containsBareWildcard reports whether a CSP value uses * as a standalone
// source (not part of a scheme or subdomain pattern like *.example.com).
func containsBareWildcard(value string) bool {
	for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == ' ' || r == ';' }) {
		if field == "*" {
			return true
		}
	}
	return false
}

// checkXFrameOptions validates the X-Frame-Options header.
func checkXFrameOptions(value string) (issues, strengths, recommendations []string) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if upper == "DENY" || upper == "SAMEORIGIN" {
		strengths = append(strengths, "X-Frame-Options restricts framing ("+upper+")")
		return issues, strengths, recommendations
	}
	issues = append(issues, fmt.Sprintf("X-Frame-Options has an invalid value %q", value))
	recommendations = append(recommendations, "Set X-Frame-Options to 'DENY' or 'SAMEORIGIN'")
	return issues, strengths, recommendations
}

// checkXContentTypeOptions validates the X-Content-Type-Options header.
func checkXContentTypeOptions(value string) (issues, strengths, recommendations []string) {
	if strings.EqualFold(strings.TrimSpace(value), "nosniff") {
		strengths = append(strengths, "X-Content-Type-Options prevents MIME sniffing")
		return issues, strengths, recommendations
	}
	issues = append(issues, "X-Content-Type-Options should be exactly 'nosniff'")
	recommendations = append(recommendations, "Set X-Content-Type-Options to 'nosniff'")
	return issues, strengths, recommendations
}

// safeReferrerPolicies are the accepted Referrer-Policy values.
var safeReferrerPolicies = []string{
	"no-referrer",
	"same-origin",
	"strict-origin",
	"strict-origin-when-cross-origin",
}

// checkReferrerPolicy validates the Referrer-Policy header.
func checkReferrerPolicy(value string) (issues, strengths, recommendations []string) {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, policy := range safeReferrerPolicies {
		if lower == policy {
			strengths = append(strengths, "Referrer-Policy limits referrer leakage ("+policy+")")
			return issues, strengths, recommendations
		}
	}
	issues = append(issues, fmt.Sprintf("Referrer-Policy %q may leak sensitive URLs in the referrer", value))
	recommendations = append(recommendations, "Use 'strict-origin-when-cross-origin' or 'no-referrer'")
	return issues, strengths, recommendations
}

// checkXSSProtection validates the legacy X-XSS-Protection header.
func checkXSSProtection(value string) (issues, strengths, recommendations []string) {
	normalized := strings.ToLower(strings.ReplaceAll(value, " ", ""))
	if normalized == "1;mode=block" {
		strengths = append(strengths, "X-XSS-Protection enables blocking mode for legacy browsers")
	} else {
		issues = append(issues, fmt.Sprintf("X-XSS-Protection %q does not enable blocking mode", value))
	}
	// The header only affects legacy browsers; always note the modern path.
	recommendations = append(recommendations,
		"X-XSS-Protection is a legacy header; prefer Content-Security-Policy in modern browsers")
	return issues, strengths, recommendations
}

// checkPermissionsPolicy validates the Permissions-Policy header.
func checkPermissionsPolicy(value string) (issues, strengths, recommendations []string) {
	if len(strings.TrimSpace(value)) < 10 {
		issues = append(issues, "Permissions-Policy is minimal; consider restricting more browser features")
		recommendations = append(recommendations, "Disable unused features, e.g. 'geolocation=(), microphone=(), camera=()'")
		return issues, strengths, recommendations
	}
	strengths = append(strengths, "Permissions-Policy restricts browser feature access")
	return issues, strengths, recommendations
}

// checkInformationDisclosure folds version-leaking headers into the outcome's
// recommendations. These do not affect the score.
func checkInformationDisclosure(headers http.Header, outcome *Outcome) {
	for _, name := range informationDisclosureHeaders {
		if value := headers.Get(name); value != "" {
			outcome.Recommendations = append(outcome.Recommendations,
				fmt.Sprintf("%s header exposes server information (%q); remove or obfuscate it", name, value))
		}
	}
}
