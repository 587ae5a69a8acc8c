package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// dnsTypeCodes maps the query types the analyzer needs onto their RR codes,
// used to filter mixed answer sections (DoH resolvers interleave CNAMEs).
var dnsTypeCodes = map[string]int{
	"A":      1,
	"NS":     2,
	"AAAA":   28,
	"MX":     15,
	"TXT":    16,
	"DNSKEY": 48,
	"CAA":    257,
}

// DoHClient issues DNS-over-HTTPS JSON queries for record types the system
// resolver cannot return (MX, TXT, NS, CAA, DNSKEY).
type DoHClient struct {
	Endpoint string // e.g. https://dns.google/resolve
	Timeout  time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// Query resolves one record type for one name. It returns the record payloads
// with TXT quoting stripped. An empty slice means the name has no records of
// that type; an error means the query itself failed.
func (c *DoHClient) Query(ctx context.Context, name, recordType string) ([]string, error) {
	code, ok := dnsTypeCodes[recordType]
	if !ok {
		return nil, fmt.Errorf("unsupported DNS record type %q", recordType)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	queryURL := fmt.Sprintf("%s?name=%s&type=%s", c.Endpoint, url.QueryEscape(name), recordType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH resolver returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed dohResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode DoH response: %w", err)
	}
	if parsed.Status != 0 && parsed.Status != 3 { // NOERROR or NXDOMAIN
		return nil, fmt.Errorf("DoH query failed with DNS status %d", parsed.Status)
	}

	records := make([]string, 0, len(parsed.Answer))
	for _, answer := range parsed.Answer {
		if answer.Type != code {
			continue
		}
		records = append(records, unquoteTXT(answer.Data))
	}
	return records, nil
}

// unquoteTXT strips the quoting DoH resolvers apply to TXT payloads and joins
// split character-strings.
func unquoteTXT(data string) string {
	if !strings.Contains(data, `"`) {
		return data
	}
	parts := strings.Split(data, `"`)
	var b strings.Builder
	for i, part := range parts {
		// Odd indexes are inside quotes.
		if i%2 == 1 {
			b.WriteString(part)
		}
	}
	if b.Len() == 0 {
		return data
	}
	return b.String()
}
