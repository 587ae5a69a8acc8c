package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/webposture/webposture/internal/orchestrator"
)

var compareCmd = &cobra.Command{
	Use:   "compare <target> <target>...",
	Short: "Scan several targets and rank them by security posture",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		asJSON, _ := cmd.Flags().GetBool("json")

		o := buildOrchestrator()
		result, err := o.Compare(cmd.Context(), args, profile, profileOverrides(cmd.Flags()), concurrency)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(result)
		}

		printComparison(result)
		return nil
	},
}

func printComparison(result *orchestrator.ComparisonResult) {
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nRANK\tTARGET\tSCORE\tGRADE\tRISK")
	for i, scan := range result.Ranked {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\n",
			i+1, scan.Target.Domain, scan.OverallScore,
			formatGrade(scan.OverallGrade), scan.Posture.RiskLevel)
	}
	tw.Flush()

	fmt.Printf("\n%s %s (%.1f) | %s %s (%.1f) | %s %.1f\n",
		colorSuccess("Best:"), result.Best.Target.Domain, result.Best.OverallScore,
		colorError("Worst:"), result.Worst.Target.Domain, result.Worst.OverallScore,
		colorInfo("Average:"), result.AverageScore)

	if len(result.CommonIssues) > 0 {
		fmt.Printf("\n%s\n", colorWarn("Issues shared across targets:"))
		for _, issue := range result.CommonIssues {
			fmt.Printf("  %d targets: %s\n", issue.AffectedCount, issue.Issue)
		}
	}
	if len(result.ImprovementOpportunities) > 0 {
		fmt.Printf("\n%s\n", colorInfo("Fleet-wide opportunities:"))
		for _, opportunity := range result.ImprovementOpportunities {
			fmt.Printf("  - %s\n", opportunity)
		}
	}
	for _, failed := range result.Failed {
		fmt.Printf("%s %s: %s\n", colorError("Not ranked:"), failed.Target, failed.Error)
	}
}

func init() {
	registerProfileFlags(compareCmd)
	compareCmd.Flags().IntP("concurrency", "c", 0, "max concurrent scans (hard-capped at 10)")
	compareCmd.Flags().Bool("json", false, "print the full result as JSON")
}
