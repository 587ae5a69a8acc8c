package orchestrator

import (
	"fmt"
	"testing"
)

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		text string
		want Priority
	}{
		{"Certificate has expired", PriorityCritical},
		{"Renew the certificate immediately", PriorityCritical},
		{"Enable DNSSEC to protect against DNS spoofing", PriorityCritical},
		{"Certificate is self-signed", PriorityCritical},
		{"Add a Strict-Transport-Security header", PriorityHigh},
		{"Publish an SPF record", PriorityHigh},
		{"DMARC policy is set to none", PriorityHigh},
		{"TLSv1.0 is enabled", PriorityHigh},
		{"Weak cipher suite negotiated", PriorityHigh},
		{"Add a Content-Security-Policy header", PriorityMedium},
		{"Set X-Frame-Options to DENY", PriorityMedium},
		{"Publish a CAA record", PriorityMedium},
		{"CSP allows a bare wildcard source", PriorityMedium},
		{"Set a Cache-Control header", PriorityLow},
		{"", PriorityLow},
	}

	for _, tt := range tests {
		if got := ClassifyPriority(tt.text); got != tt.want {
			t.Errorf("ClassifyPriority(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

// A phrase matching both a critical and a medium keyword must resolve to the
// more urgent bucket.
func TestClassifyPriority_FirstMatchWins(t *testing.T) {
	got := ClassifyPriority("CSP missing and certificate expired")
	if got != PriorityCritical {
		t.Errorf("mixed-keyword text classified %s, want critical", got)
	}
}

func TestPrioritizeRecommendations(t *testing.T) {
	recs := []string{
		"Set X-Frame-Options to DENY",
		"Renew the expired certificate",
		"Publish an SPF record",
		"Set X-Frame-Options to DENY", // duplicate
		"Review caching headers",
		"",
	}

	result := PrioritizeRecommendations(recs)

	if len(result.Critical) != 1 || len(result.High) != 1 || len(result.Medium) != 1 || len(result.Low) != 1 {
		t.Fatalf("bucket sizes critical=%d high=%d medium=%d low=%d, want 1 each",
			len(result.Critical), len(result.High), len(result.Medium), len(result.Low))
	}

	want := []string{
		"Renew the expired certificate",
		"Publish an SPF record",
		"Set X-Frame-Options to DENY",
		"Review caching headers",
	}
	if len(result.Top) != len(want) {
		t.Fatalf("top list has %d entries, want %d", len(result.Top), len(want))
	}
	for i, rec := range want {
		if result.Top[i] != rec {
			t.Errorf("top[%d] = %q, want %q", i, result.Top[i], rec)
		}
	}
}

func TestPrioritizeRecommendations_TopCap(t *testing.T) {
	var recs []string
	for i := 0; i < 15; i++ {
		recs = append(recs, fmt.Sprintf("generic housekeeping item %d", i))
	}

	result := PrioritizeRecommendations(recs)
	if len(result.Top) != topRecommendationLimit {
		t.Errorf("top list has %d entries, want %d", len(result.Top), topRecommendationLimit)
	}
	if len(result.Low) != 15 {
		t.Errorf("low bucket has %d entries, want all 15", len(result.Low))
	}
}

func TestPrioritizeRecommendations_Empty(t *testing.T) {
	result := PrioritizeRecommendations(nil)
	if len(result.Top) != 0 {
		t.Errorf("empty input produced %d top entries", len(result.Top))
	}
}
