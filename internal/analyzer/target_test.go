package analyzer

import (
	"errors"
	"testing"

	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

func TestParseTarget_BareDomain(t *testing.T) {
	target, err := ParseTarget("example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.Scheme != "https" {
		t.Errorf("expected https default scheme, got %s", target.Scheme)
	}
	if target.Host != "example.com" {
		t.Errorf("expected host example.com, got %s", target.Host)
	}
	if target.URL() != "https://example.com" {
		t.Errorf("unexpected URL %s", target.URL())
	}
}

func TestParseTarget_StripsWWWForDomain(t *testing.T) {
	target, err := ParseTarget("https://www.example.com/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.Host != "www.example.com" {
		t.Errorf("expected host to keep www, got %s", target.Host)
	}
	if target.Domain != "example.com" {
		t.Errorf("expected www stripped from domain, got %s", target.Domain)
	}
}

func TestParseTarget_ExplicitHTTP(t *testing.T) {
	target, err := ParseTarget("http://example.com:8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if target.Scheme != "http" {
		t.Errorf("expected http scheme preserved, got %s", target.Scheme)
	}
	if target.Host != "example.com" {
		t.Errorf("expected host without port, got %s", target.Host)
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	cases := []string{"", "   ", "ftp://example.com", "https://"}
	for _, raw := range cases {
		if _, err := ParseTarget(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}

	if _, err := ParseTarget(""); !errors.Is(err, secerrors.ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget, got %v", err)
	}
	if _, err := ParseTarget("ftp://example.com"); !errors.Is(err, secerrors.ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestParseTarget_Immutable(t *testing.T) {
	target, err := ParseTarget("example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	copied := target
	copied.Host = "changed.example"

	if target.Host != "example.com" {
		t.Error("modifying a copy must not affect the original target")
	}
}
