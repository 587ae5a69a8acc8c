package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/webposture/webposture/internal/orchestrator"
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan a single target and print its security posture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		asJSON, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		o := buildOrchestrator()
		result, err := o.Scan(cmd.Context(), args[0], profile, profileOverrides(cmd.Flags()))
		if err != nil {
			return err
		}

		if outputPath != "" {
			if err := writeJSONFile(outputPath, result); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", colorInfo("Results written to:"), outputPath)
		}
		if asJSON {
			return printJSON(result)
		}

		printScanSummary(result)
		return nil
	},
}

func printScanSummary(result *orchestrator.ScanResult) {
	fmt.Printf("\n%s %s\n", colorInfo("Target:"), result.Target.Domain)
	fmt.Printf("%s %.1f/100 (grade %s, risk %s)\n",
		colorInfo("Overall:"), result.OverallScore,
		formatGrade(result.OverallGrade), formatRisk(result.Posture.RiskLevel))
	fmt.Printf("%s %s | %s %.1fs\n",
		colorInfo("Profile:"), result.ProfileUsed,
		colorInfo("Duration:"), result.Duration)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tSCORE\tGRADE\tISSUES")
	for _, outcome := range result.Outcomes {
		if !outcome.Success {
			fmt.Fprintf(tw, "%s\t%s\t-\t%s\n", outcome.Analyzer, colorError("failed"), outcome.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%d\n",
			outcome.Analyzer, outcome.Score, formatGrade(outcome.Grade), len(outcome.Issues))
	}
	tw.Flush()

	if result.Posture.CriticalIssues > 0 {
		fmt.Printf("\n%s %d critical, %d high, %d medium issue(s)\n",
			colorError("Issues:"), result.Posture.CriticalIssues,
			result.Posture.HighIssues, result.Posture.MediumIssues)
	}

	if len(result.Recommendations.Top) > 0 {
		fmt.Printf("\n%s\n", colorInfo("Top recommendations:"))
		for i, rec := range result.Recommendations.Top {
			fmt.Printf("  %d. %s\n", i+1, rec)
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

func init() {
	registerProfileFlags(scanCmd)
	scanCmd.Flags().Bool("json", false, "print the full result as JSON")
	scanCmd.Flags().StringP("output", "O", "", "write the full result JSON to a file")
}
