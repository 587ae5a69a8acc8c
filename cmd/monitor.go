package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webposture/webposture/internal/orchestrator"
	"github.com/webposture/webposture/internal/shared/constants"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <target>",
	Short: "Scan a target, diff it against a baseline, and check alert thresholds",
	Long: `Runs one scan and evaluates it against monitoring thresholds. When a
baseline file (a previously saved scan result) is supplied, the score delta,
its direction and significance, and per-category movements are reported.

The command exits non-zero when any threshold is violated, so it can gate a
scheduled pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		baselinePath, _ := cmd.Flags().GetString("baseline")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		maxCritical, _ := cmd.Flags().GetInt("max-critical")
		asJSON, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		baseline, err := loadBaseline(baselinePath)
		if err != nil {
			return err
		}

		o := buildOrchestrator()
		result, err := o.Monitor(cmd.Context(), args[0], profile, profileOverrides(cmd.Flags()),
			baseline, orchestrator.NewThresholds(minScore, maxCritical))
		if err != nil {
			return err
		}

		if outputPath != "" {
			if err := writeJSONFile(outputPath, result.Current); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", colorInfo("Baseline for next run written to:"), outputPath)
		}
		if asJSON {
			if err := printJSON(result); err != nil {
				return err
			}
		} else {
			printMonitoring(result)
		}

		if result.OverallStatus != "PASS" {
			return fmt.Errorf("monitoring thresholds violated (%d alert(s))", len(result.Alerts))
		}
		return nil
	},
}

// loadBaseline reads a previously saved scan result. An empty path means no
// baseline comparison.
func loadBaseline(path string) (*orchestrator.ScanResult, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	var baseline orchestrator.ScanResult
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return &baseline, nil
}

func printMonitoring(result *orchestrator.MonitoringResult) {
	fmt.Printf("\n%s %s | %s %.1f (grade %s)\n",
		colorInfo("Target:"), result.Current.Target.Domain,
		colorInfo("Score:"), result.Current.OverallScore,
		formatGrade(result.Current.OverallGrade))

	if result.ScoreDelta != nil {
		fmt.Printf("%s %+.1f (%s, %s)\n",
			colorInfo("Delta:"), *result.ScoreDelta, result.Direction, result.Significance)
		for _, delta := range result.CategoryDeltas {
			fmt.Printf("  %s: %.1f -> %.1f (%+.1f)\n",
				delta.Category, delta.Baseline, delta.Current, delta.Delta)
		}
	}

	for _, alert := range result.Alerts {
		fmt.Printf("\n%s [%s] %s\n  %s\n",
			colorError("ALERT"), alert.Severity, alert.Message, alert.RecommendedAction)
	}

	fmt.Printf("\n%s %s\n", colorInfo("Status:"), formatStatus(result.OverallStatus))
}

func init() {
	registerProfileFlags(monitorCmd)
	monitorCmd.Flags().String("baseline", "", "path to a previously saved scan result JSON")
	monitorCmd.Flags().Float64("min-score", constants.DefaultMinimumScore, "minimum acceptable overall score")
	monitorCmd.Flags().Int("max-critical", constants.DefaultMaxCriticalIssues, "maximum allowed critical issues")
	monitorCmd.Flags().Bool("json", false, "print the full result as JSON")
	monitorCmd.Flags().StringP("output", "O", "", "save the current scan as the next baseline")
}
