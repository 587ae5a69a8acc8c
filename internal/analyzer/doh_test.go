package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// dohServer serves canned dns-json responses keyed by "name/type".
func dohServer(t *testing.T, answers map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/dns-json" {
			t.Errorf("expected dns-json Accept header, got %q", got)
		}
		name := r.URL.Query().Get("name")
		recordType := r.URL.Query().Get("type")

		body, ok := answers[name+"/"+recordType]
		if !ok {
			body = `{"Status":0}`
		}
		w.Header().Set("Content-Type", "application/dns-json")
		fmt.Fprint(w, body)
	}))
}

func TestDoHClient_Query(t *testing.T) {
	server := dohServer(t, map[string]string{
		"example.com/TXT": `{"Status":0,"Answer":[
			{"name":"example.com","type":16,"TTL":300,"data":"\"v=spf1 -all\""},
			{"name":"example.com","type":46,"TTL":300,"data":"sig-ignored"}
		]}`,
	})
	defer server.Close()

	c := &DoHClient{Endpoint: server.URL, Timeout: 5 * time.Second, HTTPClient: server.Client()}
	records, err := c.Query(context.Background(), "example.com", "TXT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected answers filtered to the requested type, got %v", records)
	}
	if records[0] != "v=spf1 -all" {
		t.Errorf("expected TXT quoting stripped, got %q", records[0])
	}
}

func TestDoHClient_EmptyVsFailed(t *testing.T) {
	server := dohServer(t, map[string]string{
		"broken.example/TXT": `{"Status":2}`,
	})
	defer server.Close()

	c := &DoHClient{Endpoint: server.URL, Timeout: 5 * time.Second, HTTPClient: server.Client()}

	// NOERROR with no answers: queried and empty.
	records, err := c.Query(context.Background(), "empty.example", "TXT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %v", records)
	}

	// SERVFAIL: the query itself failed.
	if _, err := c.Query(context.Background(), "broken.example", "TXT"); err == nil {
		t.Error("expected error for DNS status 2")
	}
}

func TestDoHClient_NXDomainIsEmpty(t *testing.T) {
	server := dohServer(t, map[string]string{
		"missing.example/TXT": `{"Status":3}`,
	})
	defer server.Close()

	c := &DoHClient{Endpoint: server.URL, Timeout: 5 * time.Second, HTTPClient: server.Client()}
	records, err := c.Query(context.Background(), "missing.example", "TXT")
	if err != nil {
		t.Fatalf("NXDOMAIN should not be an error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for NXDOMAIN, got %v", records)
	}
}

func TestDoHClient_UnsupportedType(t *testing.T) {
	c := &DoHClient{Endpoint: "http://unused.example", Timeout: time.Second}
	if _, err := c.Query(context.Background(), "example.com", "PTR"); err == nil {
		t.Error("expected error for unsupported record type")
	}
}

func TestDoHClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := &DoHClient{Endpoint: server.URL, Timeout: 5 * time.Second, HTTPClient: server.Client()}
	if _, err := c.Query(context.Background(), "example.com", "TXT"); err == nil {
		t.Error("expected error for HTTP 502")
	}
}

func TestUnquoteTXT(t *testing.T) {
	cases := map[string]string{
		`"v=spf1 -all"`:        "v=spf1 -all",
		`"part one""part two"`: "part onepart two",
		`unquoted`:             "unquoted",
	}
	for in, want := range cases {
		if got := unquoteTXT(in); got != want {
			t.Errorf("unquoteTXT(%q) = %q, want %q", in, got, want)
		}
	}
}
