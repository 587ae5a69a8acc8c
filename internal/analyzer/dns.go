package analyzer

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/webposture/webposture/internal/shared/constants"
)

// dkimSelectors is the fixed probe list for DKIM discovery. Deliberately
// non-exhaustive: these cover the default selectors of the common mail
// providers, nothing more.
var dkimSelectors = []string{"default", "selector1", "selector2", "google", "k1", "dkim"}

// commonSubdomainLabels is the fixed dictionary used by optional subdomain
// discovery. The engine never enumerates beyond this list.
var commonSubdomainLabels = []string{
	"www", "mail", "api", "dev", "staging", "test", "admin", "portal",
	"blog", "shop", "app", "vpn", "remote", "cdn", "ftp", "m",
}

// spfLookupMechanisms are the SPF terms that trigger DNS lookups, counted
// against the protocol's 10-lookup limit.
var spfLookupMechanisms = []string{"include:", "a:", "mx:", "exists:"}

// recordSet holds the collected DNS data for one domain. The advanced record
// types are pointers so "queried and empty" (empty slice) can be told apart
// from "query failed" (nil).
type recordSet struct {
	A      []string
	AAAA   []string
	MX     *[]string
	TXT    *[]string
	NS     *[]string
	CAA    *[]string
	DNSKEY *[]string
}

// DNSAnalyzer resolves a domain's record sets and scores DNSSEC, email
// authentication (SPF/DMARC/DKIM), and CAA configuration. Optionally probes a
// fixed list of common subdomain labels.
type DNSAnalyzer struct {
	Timeout              time.Duration
	DoH                  *DoHClient
	IncludeSubdomains    bool
	CheckEmailSecurity   bool
	SubdomainConcurrency int
	// Resolver overrides the default Go resolver; used by tests.
	Resolver *net.Resolver
}

func (d *DNSAnalyzer) Name() string { return NameDNS }

func (d *DNSAnalyzer) resolver() *net.Resolver {
	if d.Resolver != nil {
		return d.Resolver
	}
	return &net.Resolver{PreferGo: true}
}

func (d *DNSAnalyzer) doh() *DoHClient {
	if d.DoH != nil {
		return d.DoH
	}
	return &DoHClient{Endpoint: constants.DefaultDoHEndpoint, Timeout: d.Timeout}
}

// Analyze collects the domain's records and scores its DNS security posture.
// Scoring starts at 100 and subtracts: 30 without DNSSEC, 15 without SPF
// (else 3 per SPF issue), 20 without DMARC (else 10 for p=none, 15 for any
// other non-enforcing policy), 5 without DKIM, 10 without CAA, 15 when
// neither A nor AAAA records exist.
func (d *DNSAnalyzer) Analyze(ctx context.Context, target Target) Outcome {
	return d.evaluate(ctx, target.Domain, d.collect(ctx, target.Domain))
}

// evaluate scores an already-collected record set. Split out from Analyze so
// tests can inject fixtures.
func (d *DNSAnalyzer) evaluate(ctx context.Context, domain string, records recordSet) Outcome {
	outcome := Outcome{
		Analyzer: NameDNS,
		Success:  true,
	}

	score := 100.0

	// Address records
	addressCount := len(records.A) + len(records.AAAA)
	if addressCount == 0 {
		outcome.Issues = append(outcome.Issues, "No A or AAAA records found")
		outcome.Recommendations = append(outcome.Recommendations,
			"Publish A/AAAA records so the domain resolves")
		score -= 15
	} else {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Domain resolves to %d address record(s)", addressCount))
	}

	if records.MX != nil && len(*records.MX) > 0 {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Domain publishes %d MX record(s)", len(*records.MX)))
	}
	if records.NS != nil && len(*records.NS) > 1 {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Zone is served by %d nameservers", len(*records.NS)))
	}

	score -= d.assessDNSSEC(records, &outcome)
	if d.CheckEmailSecurity {
		score -= d.assessSPF(records, &outcome)
		score -= d.assessDMARC(ctx, domain, &outcome)
		score -= d.assessDKIM(ctx, domain, &outcome)
	}
	score -= d.assessCAA(records, &outcome)

	if d.IncludeSubdomains {
		d.discoverSubdomains(ctx, domain, &outcome)
	}

	outcome.Score = clampScore(score)
	outcome.Grade = Grade(outcome.Score)
	return outcome
}

// collect resolves standard records via the system resolver and advanced
// record types via DNS-over-HTTPS. Every lookup is best-effort.
func (d *DNSAnalyzer) collect(ctx context.Context, domain string) recordSet {
	var records recordSet
	resolver := d.resolver()

	lookupCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout())
	if ips, err := resolver.LookupIP(lookupCtx, "ip4", domain); err == nil {
		for _, ip := range ips {
			records.A = append(records.A, ip.String())
		}
	}
	cancel()

	lookupCtx, cancel = context.WithTimeout(ctx, d.lookupTimeout())
	if ips, err := resolver.LookupIP(lookupCtx, "ip6", domain); err == nil {
		for _, ip := range ips {
			records.AAAA = append(records.AAAA, ip.String())
		}
	}
	cancel()

	records.MX = d.queryAdvanced(ctx, domain, "MX")
	records.TXT = d.queryAdvanced(ctx, domain, "TXT")
	records.NS = d.queryAdvanced(ctx, domain, "NS")
	records.CAA = d.queryAdvanced(ctx, domain, "CAA")
	records.DNSKEY = d.queryAdvanced(ctx, domain, "DNSKEY")

	return records
}

func (d *DNSAnalyzer) lookupTimeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return constants.DefaultDNSTimeout
}

// queryAdvanced runs one DoH query; nil means the query itself failed.
func (d *DNSAnalyzer) queryAdvanced(ctx context.Context, name, recordType string) *[]string {
	queryCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout())
	defer cancel()

	records, err := d.doh().Query(queryCtx, name, recordType)
	if err != nil {
		return nil
	}
	return &records
}

// assessDNSSEC checks for DNSKEY presence and returns the score penalty.
func (d *DNSAnalyzer) assessDNSSEC(records recordSet, outcome *Outcome) float64 {
	switch {
	case records.DNSKEY == nil:
		outcome.Issues = append(outcome.Issues, "DNSSEC could not be verified (DNSKEY query failed)")
		outcome.Recommendations = append(outcome.Recommendations,
			"Enable DNSSEC signing for the zone")
		return 30
	case len(*records.DNSKEY) == 0:
		outcome.Issues = append(outcome.Issues, "DNSSEC is not enabled (no DNSKEY records)")
		outcome.Recommendations = append(outcome.Recommendations,
			"Enable DNSSEC signing for the zone")
		return 30
	default:
		outcome.Strengths = append(outcome.Strengths, "DNSSEC is enabled")
		return 0
	}
}

// assessSPF parses the domain's TXT records for an SPF policy.
func (d *DNSAnalyzer) assessSPF(records recordSet, outcome *Outcome) float64 {
	var spf string
	if records.TXT != nil {
		for _, txt := range *records.TXT {
			if strings.HasPrefix(strings.TrimSpace(txt), "v=spf1") {
				spf = strings.TrimSpace(txt)
				break
			}
		}
	}

	if spf == "" {
		outcome.Issues = append(outcome.Issues, "No SPF record found")
		outcome.Recommendations = append(outcome.Recommendations,
			"Publish an SPF TXT record (e.g. 'v=spf1 include:<provider> -all')")
		return 15
	}

	issues := parseSPF(spf, outcome)
	return float64(issues) * 3
}

// parseSPF appends SPF findings and returns the issue count.
func parseSPF(record string, outcome *Outcome) int {
	issues := 0

	switch {
	case strings.Contains(record, "+all"):
		outcome.Issues = append(outcome.Issues, "SPF policy is permissive (+all allows any sender)")
		outcome.Recommendations = append(outcome.Recommendations,
			"Change the SPF qualifier to '~all' or '-all'")
		issues++
	case strings.Contains(record, "?all"):
		outcome.Issues = append(outcome.Issues, "SPF policy is neutral (?all)")
		outcome.Recommendations = append(outcome.Recommendations,
			"Change the SPF qualifier to '~all' or '-all'")
		issues++
	case strings.Contains(record, "-all"):
		outcome.Strengths = append(outcome.Strengths, "SPF enforces a hard fail (-all)")
	case strings.Contains(record, "~all"):
		outcome.Strengths = append(outcome.Strengths, "SPF enforces a soft fail (~all)")
	}

	lookups := 0
	for _, mechanism := range spfLookupMechanisms {
		lookups += strings.Count(record, mechanism)
	}
	if lookups > 8 {
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("SPF uses %d DNS lookup mechanisms, close to the 10-lookup limit", lookups))
		outcome.Recommendations = append(outcome.Recommendations,
			"Flatten SPF includes to stay under the 10 DNS lookup limit")
		issues++
	}

	return issues
}

// assessDMARC queries _dmarc.<domain> and scores the published policy.
func (d *DNSAnalyzer) assessDMARC(ctx context.Context, domain string, outcome *Outcome) float64 {
	var record string
	if txts := d.queryAdvanced(ctx, "_dmarc."+domain, "TXT"); txts != nil {
		for _, txt := range *txts {
			if strings.HasPrefix(strings.TrimSpace(txt), "v=DMARC1") {
				record = strings.TrimSpace(txt)
				break
			}
		}
	}

	if record == "" {
		outcome.Issues = append(outcome.Issues, "No DMARC record found")
		outcome.Recommendations = append(outcome.Recommendations,
			"Publish a DMARC record at _dmarc."+domain+" (start with 'p=quarantine')")
		return 20
	}

	tags := parseDMARCTags(record)
	penalty := 0.0

	switch tags["p"] {
	case "quarantine", "reject":
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("DMARC enforces policy '%s'", tags["p"]))
	case "none":
		outcome.Issues = append(outcome.Issues, "DMARC policy is 'none' (monitoring only)")
		outcome.Recommendations = append(outcome.Recommendations,
			"Move the DMARC policy to 'quarantine' or 'reject'")
		penalty = 10
	default:
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("DMARC policy %q is not an enforcing policy", tags["p"]))
		outcome.Recommendations = append(outcome.Recommendations,
			"Set the DMARC policy to 'quarantine' or 'reject'")
		penalty = 15
	}

	if _, ok := tags["sp"]; !ok {
		outcome.Issues = append(outcome.Issues, "DMARC record has no subdomain policy (sp=)")
	}
	if pct, ok := tags["pct"]; ok && pct != "100" {
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("DMARC is only applied to %s%% of messages (pct=%s)", pct, pct))
	}

	return penalty
}

// parseDMARCTags splits a DMARC record into its ;-delimited key=value tags.
func parseDMARCTags(record string) map[string]string {
	tags := make(map[string]string)
	for _, part := range strings.Split(record, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		tags[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return tags
}

// assessDKIM probes the fixed selector list under _domainkey.
func (d *DNSAnalyzer) assessDKIM(ctx context.Context, domain string, outcome *Outcome) float64 {
	var found []string
	for _, selector := range dkimSelectors {
		txts := d.queryAdvanced(ctx, selector+"._domainkey."+domain, "TXT")
		if txts != nil && len(*txts) > 0 {
			found = append(found, selector)
		}
	}

	if len(found) == 0 {
		outcome.Issues = append(outcome.Issues,
			"No DKIM record found for common selectors")
		outcome.Recommendations = append(outcome.Recommendations,
			"Publish DKIM keys and sign outgoing mail")
		return 5
	}

	outcome.Strengths = append(outcome.Strengths,
		fmt.Sprintf("DKIM keys published (selector(s): %s)", strings.Join(found, ", ")))
	return 0
}

// assessCAA checks certificate-authority authorization records.
func (d *DNSAnalyzer) assessCAA(records recordSet, outcome *Outcome) float64 {
	if records.CAA == nil || len(*records.CAA) == 0 {
		outcome.Issues = append(outcome.Issues, "No CAA records restrict certificate issuance")
		outcome.Recommendations = append(outcome.Recommendations,
			"Publish CAA records authorizing only your certificate authority")
		return 10
	}

	authorized := parseCAAIssuers(*records.CAA)
	if len(authorized) > 0 {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("CAA restricts issuance to: %s", strings.Join(authorized, ", ")))
	} else {
		outcome.Strengths = append(outcome.Strengths, "CAA records are published")
	}
	return 0
}

// parseCAAIssuers extracts the authorized CA domains from CAA record payloads
// (e.g. `0 issue "letsencrypt.org"`).
func parseCAAIssuers(records []string) []string {
	seen := make(map[string]bool)
	var issuers []string
	for _, record := range records {
		fields := strings.Fields(record)
		if len(fields) < 3 {
			continue
		}
		tag := strings.ToLower(fields[1])
		if tag != "issue" && tag != "issuewild" {
			continue
		}
		value := strings.Trim(fields[2], `"`)
		if value == "" || value == ";" || seen[value] {
			continue
		}
		seen[value] = true
		issuers = append(issuers, value)
	}
	sort.Strings(issuers)
	return issuers
}

// discoverSubdomains resolves the fixed label dictionary with a bounded
// worker pool. A label that does not resolve is simply not found.
func (d *DNSAnalyzer) discoverSubdomains(ctx context.Context, domain string, outcome *Outcome) {
	concurrency := d.SubdomainConcurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultSubdomainConcurrency
	}

	resolver := d.resolver()
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var found []string

	for _, label := range commonSubdomainLabels {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			lookupCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout())
			defer cancel()

			if addrs, err := resolver.LookupHost(lookupCtx, label+"."+domain); err == nil && len(addrs) > 0 {
				mu.Lock()
				found = append(found, label+"."+domain)
				mu.Unlock()
			}
		}(label)
	}
	wg.Wait()

	if len(found) > 0 {
		sort.Strings(found)
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Discovered %d common subdomain(s): %s", len(found), strings.Join(found, ", ")))
		outcome.Recommendations = append(outcome.Recommendations,
			"Verify every discovered subdomain is intentionally exposed")
	}
}
