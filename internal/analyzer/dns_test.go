package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"
)

func emptyRecords() recordSet {
	empty := func() *[]string { s := []string{}; return &s }
	return recordSet{
		A:      []string{"192.0.2.10"},
		MX:     empty(),
		TXT:    empty(),
		NS:     empty(),
		CAA:    empty(),
		DNSKEY: empty(),
	}
}

func testDNSAnalyzer(t *testing.T, answers map[string]string) *DNSAnalyzer {
	t.Helper()
	server := dohServer(t, answers)
	t.Cleanup(server.Close)
	return &DNSAnalyzer{
		Timeout:            5 * time.Second,
		CheckEmailSecurity: true,
		DoH:                &DoHClient{Endpoint: server.URL, Timeout: 5 * time.Second, HTTPClient: server.Client()},
	}
}

func TestEvaluate_BareMinimumDomain(t *testing.T) {
	// A records only: no DNSSEC, SPF, DMARC, DKIM, or CAA.
	// 100 - 30 - 15 - 20 - 5 - 10 = 20, grade F.
	d := testDNSAnalyzer(t, nil)

	outcome := d.evaluate(context.Background(), "example.com", emptyRecords())

	if !outcome.Success {
		t.Fatal("expected success")
	}
	if outcome.Score != 20 {
		t.Errorf("expected score 20, got %v", outcome.Score)
	}
	if outcome.Grade != "F" {
		t.Errorf("expected grade F, got %s", outcome.Grade)
	}
}

func TestEvaluate_WellConfiguredDomain(t *testing.T) {
	d := testDNSAnalyzer(t, map[string]string{
		"example.com/TXT": `{"Status":0,"Answer":[
			{"name":"example.com","type":16,"TTL":300,"data":"\"v=spf1 include:_spf.example.net -all\""}
		]}`,
		"_dmarc.example.com/TXT": `{"Status":0,"Answer":[
			{"name":"_dmarc.example.com","type":16,"TTL":300,"data":"\"v=DMARC1; p=reject; sp=reject; pct=100\""}
		]}`,
		"default._domainkey.example.com/TXT": `{"Status":0,"Answer":[
			{"name":"default._domainkey.example.com","type":16,"TTL":300,"data":"\"v=DKIM1; k=rsa; p=MIGf\""}
		]}`,
	})

	records := emptyRecords()
	dnskey := []string{"257 3 13 mdsswUyr3DPW132mOi8V9xESWE8jTo0dxCjjnopKl+GqJxpVXckHAeF+KkxLbxILfDLUT0rAK9iUzy1L53eKGQ=="}
	caa := []string{`0 issue "letsencrypt.org"`}
	records.DNSKEY = &dnskey
	records.CAA = &caa
	// Re-resolve TXT through DoH for SPF.
	txt, err := d.DoH.Query(context.Background(), "example.com", "TXT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records.TXT = &txt

	outcome := d.evaluate(context.Background(), "example.com", records)

	if outcome.Score != 100 {
		t.Errorf("expected score 100, got %v (issues: %v)", outcome.Score, outcome.Issues)
	}
	if outcome.Grade != "A" {
		t.Errorf("expected grade A, got %s", outcome.Grade)
	}

	joined := strings.Join(outcome.Strengths, "\n")
	for _, fragment := range []string{"DNSSEC", "-all", "reject", "DKIM", "letsencrypt.org"} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("expected strength mentioning %q, got %v", fragment, outcome.Strengths)
		}
	}
}

func TestEvaluate_NoAddressRecords(t *testing.T) {
	d := testDNSAnalyzer(t, nil)

	records := emptyRecords()
	records.A = nil

	outcome := d.evaluate(context.Background(), "example.com", records)

	// 100 - 15 (no addresses) - 30 - 15 - 20 - 5 - 10 = 5
	if outcome.Score != 5 {
		t.Errorf("expected score 5, got %v", outcome.Score)
	}
}

func TestEvaluate_EmailChecksDisabled(t *testing.T) {
	d := testDNSAnalyzer(t, nil)
	d.CheckEmailSecurity = false

	outcome := d.evaluate(context.Background(), "example.com", emptyRecords())

	// Only DNSSEC (-30) and CAA (-10) apply.
	if outcome.Score != 60 {
		t.Errorf("expected score 60, got %v", outcome.Score)
	}
	for _, issue := range outcome.Issues {
		if strings.Contains(issue, "SPF") || strings.Contains(issue, "DMARC") || strings.Contains(issue, "DKIM") {
			t.Errorf("email issues must not appear when the check is disabled: %q", issue)
		}
	}
}

func TestParseSPF(t *testing.T) {
	cases := []struct {
		record     string
		wantIssues int
	}{
		{"v=spf1 include:_spf.example.net -all", 0},
		{"v=spf1 include:_spf.example.net ~all", 0},
		{"v=spf1 +all", 1},
		{"v=spf1 ?all", 1},
		{"v=spf1 include:a include:b include:c include:d include:e include:f include:g include:h include:i -all", 1},
	}

	for _, tc := range cases {
		var outcome Outcome
		got := parseSPF(tc.record, &outcome)
		if got != tc.wantIssues {
			t.Errorf("parseSPF(%q) = %d issues, want %d (%v)", tc.record, got, tc.wantIssues, outcome.Issues)
		}
	}
}

func TestParseDMARCTags(t *testing.T) {
	tags := parseDMARCTags("v=DMARC1; p=quarantine; sp=reject; pct=50; rua=mailto:dmarc@example.com")

	if tags["p"] != "quarantine" {
		t.Errorf("expected p=quarantine, got %q", tags["p"])
	}
	if tags["sp"] != "reject" {
		t.Errorf("expected sp=reject, got %q", tags["sp"])
	}
	if tags["pct"] != "50" {
		t.Errorf("expected pct=50, got %q", tags["pct"])
	}
}

func TestAssessDMARC_PolicyPenalties(t *testing.T) {
	cases := []struct {
		record      string
		wantPenalty float64
	}{
		{`\"v=DMARC1; p=reject; sp=reject\"`, 0},
		{`\"v=DMARC1; p=quarantine; sp=reject\"`, 0},
		{`\"v=DMARC1; p=none\"`, 10},
		{`\"v=DMARC1; p=invalid\"`, 15},
	}

	for _, tc := range cases {
		d := testDNSAnalyzer(t, map[string]string{
			"_dmarc.example.com/TXT": `{"Status":0,"Answer":[
				{"name":"_dmarc.example.com","type":16,"TTL":300,"data":"` + tc.record + `"}
			]}`,
		})

		var outcome Outcome
		got := d.assessDMARC(context.Background(), "example.com", &outcome)
		if got != tc.wantPenalty {
			t.Errorf("record %s: penalty %v, want %v", tc.record, got, tc.wantPenalty)
		}
	}
}

func TestAssessDMARC_Absent(t *testing.T) {
	d := testDNSAnalyzer(t, nil)

	var outcome Outcome
	if got := d.assessDMARC(context.Background(), "example.com", &outcome); got != 20 {
		t.Errorf("expected penalty 20 without DMARC, got %v", got)
	}
}

func TestAssessDKIM_SelectorFound(t *testing.T) {
	d := testDNSAnalyzer(t, map[string]string{
		"google._domainkey.example.com/TXT": `{"Status":0,"Answer":[
			{"name":"google._domainkey.example.com","type":16,"TTL":300,"data":"\"v=DKIM1; k=rsa; p=MIGf\""}
		]}`,
	})

	var outcome Outcome
	if got := d.assessDKIM(context.Background(), "example.com", &outcome); got != 0 {
		t.Errorf("expected no penalty with a published selector, got %v", got)
	}
	if len(outcome.Strengths) != 1 || !strings.Contains(outcome.Strengths[0], "google") {
		t.Errorf("expected strength naming the selector, got %v", outcome.Strengths)
	}
}

func TestParseCAAIssuers(t *testing.T) {
	issuers := parseCAAIssuers([]string{
		`0 issue "letsencrypt.org"`,
		`0 issuewild "letsencrypt.org"`,
		`0 issue "digicert.com"`,
		`0 iodef "mailto:security@example.com"`,
	})

	if len(issuers) != 2 {
		t.Fatalf("expected 2 unique issuers, got %v", issuers)
	}
	if issuers[0] != "digicert.com" || issuers[1] != "letsencrypt.org" {
		t.Errorf("unexpected issuers %v", issuers)
	}
}

func TestRecordSet_FailedVsEmpty(t *testing.T) {
	d := testDNSAnalyzer(t, nil)

	var failedOutcome, emptyOutcome Outcome
	d.assessDNSSEC(recordSet{DNSKEY: nil}, &failedOutcome)
	d.assessDNSSEC(recordSet{DNSKEY: &[]string{}}, &emptyOutcome)

	if !strings.Contains(failedOutcome.Issues[0], "query failed") {
		t.Errorf("expected failed-query wording, got %q", failedOutcome.Issues[0])
	}
	if !strings.Contains(emptyOutcome.Issues[0], "not enabled") {
		t.Errorf("expected not-enabled wording, got %q", emptyOutcome.Issues[0])
	}
}
