package orchestrator

import (
	"fmt"

	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// Profile selects which analyzers run and with which options.
type Profile struct {
	Name               string `json:"name"`
	IncludeHeaders     bool   `json:"include_headers"`
	IncludeSSL         bool   `json:"include_ssl"`
	IncludeDNS         bool   `json:"include_dns"`
	IncludeSubdomains  bool   `json:"include_subdomains"`
	CheckEmailSecurity bool   `json:"check_email_security"`
}

// Override keys accepted by ResolveProfile.
const (
	OverrideHeaders       = "include_headers"
	OverrideSSL           = "include_ssl"
	OverrideDNS           = "include_dns"
	OverrideSubdomains    = "include_subdomains"
	OverrideEmailSecurity = "check_email_security"
)

// builtinProfiles are the named scan presets.
var builtinProfiles = map[string]Profile{
	"quick": {
		Name:           "quick",
		IncludeHeaders: true,
		IncludeSSL:     true,
	},
	"standard": {
		Name:               "standard",
		IncludeHeaders:     true,
		IncludeSSL:         true,
		IncludeDNS:         true,
		CheckEmailSecurity: true,
	},
	"comprehensive": {
		Name:               "comprehensive",
		IncludeHeaders:     true,
		IncludeSSL:         true,
		IncludeDNS:         true,
		IncludeSubdomains:  true,
		CheckEmailSecurity: true,
	},
	"compliance": {
		Name:               "compliance",
		IncludeHeaders:     true,
		IncludeSSL:         true,
		IncludeDNS:         true,
		CheckEmailSecurity: true,
	},
}

// DefaultProfileName is used when the caller passes an empty profile name.
const DefaultProfileName = "standard"

// ProfileNames lists the built-in profiles in a stable order.
func ProfileNames() []string {
	return []string{"quick", "standard", "comprehensive", "compliance"}
}

// ResolveProfile merges caller overrides onto a named built-in profile.
// Unknown profile names and unknown override keys are errors.
func ResolveProfile(name string, overrides map[string]bool) (Profile, error) {
	if name == "" {
		name = DefaultProfileName
	}

	profile, ok := builtinProfiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", secerrors.ErrUnknownProfile, name)
	}

	for key, value := range overrides {
		switch key {
		case OverrideHeaders:
			profile.IncludeHeaders = value
		case OverrideSSL:
			profile.IncludeSSL = value
		case OverrideDNS:
			profile.IncludeDNS = value
		case OverrideSubdomains:
			profile.IncludeSubdomains = value
		case OverrideEmailSecurity:
			profile.CheckEmailSecurity = value
		default:
			return Profile{}, fmt.Errorf("unknown profile override %q", key)
		}
	}

	return profile, nil
}

// EnabledAnalyzerCount returns how many analyzers the profile dispatches.
func (p Profile) EnabledAnalyzerCount() int {
	count := 0
	if p.IncludeHeaders {
		count++
	}
	if p.IncludeSSL {
		count++
	}
	if p.IncludeDNS {
		count++
	}
	return count
}
