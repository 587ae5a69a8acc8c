package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/webposture/webposture/internal/orchestrator"
)

var batchCmd = &cobra.Command{
	Use:   "batch <target>...",
	Short: "Scan multiple targets with bounded concurrency",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := collectTargets(cmd, args)
		if err != nil {
			return err
		}

		profile, _ := cmd.Flags().GetString("profile")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		asJSON, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		o := buildOrchestrator()
		result, err := o.BatchScan(cmd.Context(), targets, profile, profileOverrides(cmd.Flags()), concurrency)
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

		printBatchSummary(result)
		return nil
	},
}

// collectTargets merges positional targets with an optional newline-delimited
// file. Lines starting with # are comments.
func collectTargets(cmd *cobra.Command, args []string) ([]string, error) {
	targets := append([]string{}, args...)

	listPath, _ := cmd.Flags().GetString("file")
	if listPath != "" {
		f, err := os.Open(listPath)
		if err != nil {
			return nil, fmt.Errorf("open target list: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			targets = append(targets, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read target list: %w", err)
		}
	}

	return targets, nil
}

func printBatchSummary(result *orchestrator.BatchResult) {
	fmt.Printf("\n%s %d scanned, %s %d, %s %d\n",
		colorInfo("Targets:"), len(result.Targets),
		colorSuccess("ok:"), len(result.Successful),
		colorError("failed:"), len(result.Failed))

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTARGET\tSCORE\tGRADE\tRISK")
	for _, scan := range result.Successful {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\n",
			scan.Target.Domain, scan.OverallScore,
			formatGrade(scan.OverallGrade), scan.Posture.RiskLevel)
	}
	for _, failed := range result.Failed {
		fmt.Fprintf(tw, "%s\t%s\t-\t%s\n", failed.Target, colorError("failed"), failed.Error)
	}
	tw.Flush()

	if len(result.Successful) == 0 {
		return
	}

	stats := result.Stats
	fmt.Printf("\n%s avg %.1f, min %.1f, max %.1f\n",
		colorInfo("Scores:"), stats.AverageScore, stats.MinScore, stats.MaxScore)

	if len(stats.CommonIssues) > 0 {
		fmt.Printf("\n%s\n", colorWarn("Common issues:"))
		for _, issue := range stats.CommonIssues {
			fmt.Printf("  %d/%d targets (%.0f%%): %s\n",
				issue.AffectedCount, len(result.Successful), issue.Percentage, issue.Issue)
		}
	}

	var features []string
	for feature := range stats.BestPractices {
		features = append(features, feature)
	}
	sort.Strings(features)
	fmt.Printf("\n%s\n", colorInfo("Best practice adoption:"))
	for _, feature := range features {
		fmt.Printf("  %-22s %.0f%%\n", feature, stats.BestPractices[feature])
	}
}

func init() {
	registerProfileFlags(batchCmd)
	batchCmd.Flags().StringP("file", "f", "", "newline-delimited file of additional targets")
	batchCmd.Flags().IntP("concurrency", "c", 0, "max concurrent scans (hard-capped at 10)")
	batchCmd.Flags().Bool("json", false, "print the full result as JSON")
	batchCmd.Flags().StringP("output", "O", "", "write the full result JSON to a file")
}
