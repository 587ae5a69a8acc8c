package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// Target is a normalized scan target. Immutable once constructed.
type Target struct {
	Raw    string `json:"raw_input"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`   // hostname as given (no scheme, port, path)
	Domain string `json:"domain"` // host with a leading "www." stripped
}

// URL returns the full URL used for HTTP requests against the target.
func (t Target) URL() string {
	return t.Scheme + "://" + t.Host
}

// ParseTarget normalizes a raw target string into a Target.
// Accepted inputs:
//   - example.com
//   - www.example.com
//   - https://example.com/path
//   - http://example.com:8080
//
// A missing scheme defaults to https. The leading "www." is stripped for
// domain-level checks (DNS, TLS) but kept in Host for HTTP requests.
func ParseTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, secerrors.ErrEmptyTarget
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", secerrors.ErrInvalidTarget, raw)
	}

	host := parsed.Hostname()
	if host == "" || strings.ContainsAny(host, " ") {
		return Target{}, fmt.Errorf("%w: %q", secerrors.ErrInvalidTarget, raw)
	}

	scheme := parsed.Scheme
	if scheme != "http" && scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", secerrors.ErrInvalidTarget, parsed.Scheme)
	}

	return Target{
		Raw:    trimmed,
		Scheme: scheme,
		Host:   host,
		Domain: strings.TrimPrefix(host, "www."),
	}, nil
}
