package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/webposture/webposture/internal/orchestrator"
	"github.com/webposture/webposture/internal/shared/constants"
)

// CLIConfig captures runtime configuration shared across commands. Flag
// values are bound at registration; config-file values are merged in the
// root command's PersistentPreRunE.
type CLIConfig struct {
	ScanTimeoutSecs     int
	AnalyzerTimeoutSecs int
	DoHEndpoint         string
	RateLimit           int
	Concurrency         int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		ScanTimeoutSecs:     int(constants.DefaultScanTimeout / time.Second),
		AnalyzerTimeoutSecs: int(constants.DefaultAnalyzerTimeout / time.Second),
		DoHEndpoint:         constants.DefaultDoHEndpoint,
		Concurrency:         constants.DefaultBatchConcurrency,
	}
}

// applyConfigFile overlays config-file settings onto values the flags did
// not already claim.
func applyConfigFile(cfg *CLIConfig) {
	if viper.IsSet("scan_timeout") {
		cfg.ScanTimeoutSecs = viper.GetInt("scan_timeout")
	}
	if viper.IsSet("analyzer_timeout") {
		cfg.AnalyzerTimeoutSecs = viper.GetInt("analyzer_timeout")
	}
	if endpoint := viper.GetString("doh_endpoint"); endpoint != "" {
		cfg.DoHEndpoint = endpoint
	}
	if viper.IsSet("rate_limit") {
		cfg.RateLimit = viper.GetInt("rate_limit")
	}
}

// buildOrchestrator wires the engine from the effective configuration.
func buildOrchestrator() *orchestrator.Orchestrator {
	o := orchestrator.New(logger)
	o.Timeout = time.Duration(cliConfig.ScanTimeoutSecs) * time.Second
	o.AnalyzerTimeout = time.Duration(cliConfig.AnalyzerTimeoutSecs) * time.Second
	o.DoHEndpoint = cliConfig.DoHEndpoint
	o.RateLimit = cliConfig.RateLimit
	return o
}

// profileFlagKeys pairs each analyzer toggle flag with its override key.
var profileFlagKeys = []struct {
	Flag string
	Key  string
}{
	{"headers", orchestrator.OverrideHeaders},
	{"ssl", orchestrator.OverrideSSL},
	{"dns", orchestrator.OverrideDNS},
	{"subdomains", orchestrator.OverrideSubdomains},
	{"email-security", orchestrator.OverrideEmailSecurity},
}

// registerProfileFlags adds the profile selector and per-analyzer toggles.
func registerProfileFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("profile", "p", orchestrator.DefaultProfileName,
		fmt.Sprintf("scan profile: %v", orchestrator.ProfileNames()))
	cmd.Flags().Bool("headers", true, "analyze HTTP security headers")
	cmd.Flags().Bool("ssl", true, "analyze TLS and certificate configuration")
	cmd.Flags().Bool("dns", true, "analyze DNS security posture")
	cmd.Flags().Bool("subdomains", false, "probe common subdomain labels")
	cmd.Flags().Bool("email-security", true, "check SPF, DMARC, and DKIM records")
}

// profileOverrides collects only the toggles the caller explicitly set, so
// untouched flags defer to the named profile.
func profileOverrides(flags *pflag.FlagSet) map[string]bool {
	overrides := make(map[string]bool)
	for _, pair := range profileFlagKeys {
		if !flags.Changed(pair.Flag) {
			continue
		}
		value, _ := flags.GetBool(pair.Flag)
		overrides[pair.Key] = value
	}
	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

// writeJSONFile marshals v with indentation and writes it to path.
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
