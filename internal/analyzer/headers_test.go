package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// perfectHeaders returns a header set that earns full marks on every catalog
// entry.
func perfectHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	headers.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self'")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	headers.Set("X-XSS-Protection", "1; mode=block")
	headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	return headers
}

func TestScoreHeaders_AllPresentClean(t *testing.T) {
	outcome := scoreHeaders(perfectHeaders())

	if !outcome.Success {
		t.Fatal("expected success")
	}
	if outcome.Score != 100 {
		t.Errorf("expected score 100 with all catalog headers clean, got %v", outcome.Score)
	}
	if outcome.Grade != "A" {
		t.Errorf("expected grade A, got %s", outcome.Grade)
	}
	if len(outcome.Issues) != 0 {
		t.Errorf("expected no issues, got %v", outcome.Issues)
	}
}

func TestScoreHeaders_AllMissing(t *testing.T) {
	outcome := scoreHeaders(http.Header{})

	if outcome.Score != 0 {
		t.Errorf("expected score 0 with no headers, got %v", outcome.Score)
	}
	if outcome.Grade != "F" {
		t.Errorf("expected grade F, got %s", outcome.Grade)
	}
	if len(outcome.Issues) != len(headerCatalog) {
		t.Errorf("expected %d missing-header issues, got %d", len(headerCatalog), len(outcome.Issues))
	}
	// Every missing header carries a canned recommendation.
	if len(outcome.Recommendations) != len(headerCatalog) {
		t.Errorf("expected %d recommendations, got %d", len(headerCatalog), len(outcome.Recommendations))
	}
}

func TestScoreHeaders_IssuePenalty(t *testing.T) {
	// Three CSP issues discount that header to 40% of its weight.
	headers := perfectHeaders()
	headers.Set("Content-Security-Policy", "default-src * 'unsafe-inline' 'unsafe-eval'")

	outcome := scoreHeaders(headers)

	// Weights total 130; CSP (30) at penalty 0.4 => earned 112 of 130.
	want := (100.0 + 30.0*0.4) / 130.0 * 100
	if diff := outcome.Score - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("expected score %.2f, got %.2f", want, outcome.Score)
	}
}


func TestScoreHeaders_Bounds(t *testing.T) {
	cases := []http.Header{
		{},
		perfectHeaders(),
		{"Strict-Transport-Security": []string{"max-age=10"}},
	}
	for _, headers := range cases {
		outcome := scoreHeaders(headers)
		if outcome.Score < 0 || outcome.Score > 100 {
			t.Errorf("score %v out of [0,100]", outcome.Score)
		}
		if outcome.Grade != Grade(outcome.Score) {
			t.Errorf("grade %s inconsistent with score %v", outcome.Grade, outcome.Score)
		}
	}
}

func TestCheckHSTS(t *testing.T) {
	issues, strengths, _ := checkHSTS("max-age=31536000; includeSubDomains; preload")
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if len(strengths) != 3 {
		t.Errorf("expected 3 strengths, got %v", strengths)
	}

	issues, _, _ = checkHSTS("max-age=3600")
	if len(issues) != 1 || !strings.Contains(issues[0], "31536000") {
		t.Errorf("expected short max-age issue, got %v", issues)
	}

	issues, _, _ = checkHSTS("includeSubDomains")
	if len(issues) != 1 || !strings.Contains(issues[0], "max-age") {
		t.Errorf("expected missing max-age issue, got %v", issues)
	}
}

func TestCheckCSP(t *testing.T) {
	issues, _, _ := checkCSP("default-src 'self' 'unsafe-inline' 'unsafe-eval' *")
	if len(issues) != 3 {
		t.Errorf("expected 3 issues for unsafe CSP, got %v", issues)
	}

	issues, strengths, _ := checkCSP("default-src 'self'; script-src 'self'; img-src 'self'")
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if len(strengths) != 1 {
		t.Errorf("expected core-directive strength, got %v", strengths)
	}

	// *.example.com is a subdomain wildcard, not a bare wildcard source.
	issues, _, _ = checkCSP("default-src https://*.example.com")
	if len(issues) != 0 {
		t.Errorf("subdomain wildcard should not be flagged, got %v", issues)
	}
}

func TestCheckXFrameOptions(t *testing.T) {
	for _, value := range []string{"DENY", "SAMEORIGIN", "sameorigin"} {
		if issues, _, _ := checkXFrameOptions(value); len(issues) != 0 {
			t.Errorf("expected %q accepted, got issues %v", value, issues)
		}
	}
	if issues, _, _ := checkXFrameOptions("ALLOW-FROM https://example.com"); len(issues) == 0 {
		t.Error("expected ALLOW-FROM to be rejected")
	}
}

func TestCheckXContentTypeOptions(t *testing.T) {
	if issues, _, _ := checkXContentTypeOptions("nosniff"); len(issues) != 0 {
		t.Errorf("expected nosniff accepted, got %v", issues)
	}
	if issues, _, _ := checkXContentTypeOptions("sniff"); len(issues) == 0 {
		t.Error("expected invalid value rejected")
	}
}

func TestCheckReferrerPolicy(t *testing.T) {
	if issues, _, _ := checkReferrerPolicy("no-referrer"); len(issues) != 0 {
		t.Errorf("expected no-referrer accepted, got %v", issues)
	}
	if issues, _, _ := checkReferrerPolicy("unsafe-url"); len(issues) == 0 {
		t.Error("expected unsafe-url rejected")
	}
}

func TestCheckXSSProtection_AlwaysNotesLegacy(t *testing.T) {
	_, _, recs := checkXSSProtection("1; mode=block")
	if len(recs) != 1 || !strings.Contains(recs[0], "legacy") {
		t.Errorf("expected legacy note, got %v", recs)
	}

	issues, _, recs := checkXSSProtection("0")
	if len(issues) != 1 {
		t.Errorf("expected issue for disabled protection, got %v", issues)
	}
	if len(recs) != 1 {
		t.Errorf("legacy note should still be present, got %v", recs)
	}
}

func TestHeaderAnalyzer_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, values := range perfectHeaders() {
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := &HeaderAnalyzer{Timeout: 5 * time.Second, Client: server.Client()}
	outcome := a.Analyze(context.Background(), targetForURL(t, server.URL))

	if !outcome.Success {
		t.Fatalf("expected success, got error %q", outcome.Error)
	}
	if outcome.Score != 100 {
		t.Errorf("expected score 100, got %v", outcome.Score)
	}
}

func TestHeaderAnalyzer_FollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusMovedPermanently)
	}))
	defer redirecting.Close()

	a := &HeaderAnalyzer{Timeout: 5 * time.Second, Client: redirecting.Client()}
	outcome := a.Analyze(context.Background(), targetForURL(t, redirecting.URL))

	if !outcome.Success {
		t.Fatalf("expected success, got error %q", outcome.Error)
	}
	found := false
	for _, strength := range outcome.Strengths {
		if strings.Contains(strength, "MIME sniffing") {
			found = true
		}
	}
	if !found {
		t.Error("expected the final response's headers to be scored after the redirect")
	}
}

func TestHeaderAnalyzer_NetworkFailure(t *testing.T) {
	a := &HeaderAnalyzer{Timeout: 200 * time.Millisecond}
	target := Target{Raw: "127.0.0.1:1", Scheme: "http", Host: "127.0.0.1:1", Domain: "127.0.0.1"}

	outcome := a.Analyze(context.Background(), target)

	if outcome.Success {
		t.Fatal("expected failure against a closed port")
	}
	if outcome.Error == "" {
		t.Error("expected the raw error message to be captured")
	}
	if outcome.Score != 0 {
		t.Errorf("failed outcome must not carry a score, got %v", outcome.Score)
	}
}

func TestScoreHeaders_InformationDisclosure(t *testing.T) {
	headers := perfectHeaders()
	headers.Set("Server", "nginx/1.2.3")
	headers.Set("X-Powered-By", "PHP/8.1")

	outcome := scoreHeaders(headers)

	disclosures := 0
	for _, rec := range outcome.Recommendations {
		if strings.Contains(rec, "exposes server information") {
			disclosures++
		}
	}
	if disclosures != 2 {
		t.Errorf("expected 2 disclosure recommendations, got %d", disclosures)
	}
	// Disclosure notes never affect the score.
	if outcome.Score != 100 {
		t.Errorf("expected score 100, got %v", outcome.Score)
	}
}

// targetForURL builds a Target pointing at a httptest server URL.
func targetForURL(t *testing.T, rawURL string) Target {
	t.Helper()
	hostPort := strings.TrimPrefix(strings.TrimPrefix(rawURL, "http://"), "https://")
	scheme := "http"
	if strings.HasPrefix(rawURL, "https://") {
		scheme = "https"
	}
	return Target{Raw: rawURL, Scheme: scheme, Host: hostPort, Domain: hostPort}
}
