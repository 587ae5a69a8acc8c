package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webposture/webposture/internal/orchestrator"
	"github.com/webposture/webposture/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <target>",
	Short: "Scan a target and render a report (executive|technical|compliance|quick)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportType, _ := cmd.Flags().GetString("type")
		format, _ := cmd.Flags().GetString("format")
		format = strings.ToLower(format)
		framework, _ := cmd.Flags().GetString("framework")
		includeCompliance, _ := cmd.Flags().GetBool("include-compliance")
		inputPath, _ := cmd.Flags().GetString("input")
		outputPath, _ := cmd.Flags().GetString("output")
		profile, _ := cmd.Flags().GetString("profile")

		scan, err := reportScanData(cmd, args, inputPath, profile)
		if err != nil {
			return err
		}

		rendered, err := report.Generate(scan, report.Type(strings.ToLower(reportType)), report.Options{
			IncludeCompliance: includeCompliance,
			Framework:         framework,
		})
		if err != nil {
			return err
		}

		data, err := report.Export(rendered, report.Format(format))
		if err != nil {
			return err
		}

		if outputPath != "" {
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Printf("%s %s\n", colorInfo("Report written to:"), outputPath)
			return nil
		}

		// PDF bytes are useless on a terminal.
		if report.Format(format) == report.FormatPDF {
			return fmt.Errorf("--output is required for pdf reports")
		}
		fmt.Println(string(data))
		return nil
	},
}

// reportScanData obtains scan data either by scanning the positional target
// or by loading a previously saved result.
func reportScanData(cmd *cobra.Command, args []string, inputPath, profile string) (*orchestrator.ScanResult, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("read scan data: %w", err)
		}
		var scan orchestrator.ScanResult
		if err := json.Unmarshal(data, &scan); err != nil {
			return nil, fmt.Errorf("parse scan data %s: %w", inputPath, err)
		}
		return &scan, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a target argument or --input file is required")
	}

	o := buildOrchestrator()
	return o.Scan(cmd.Context(), args[0], profile, profileOverrides(cmd.Flags()))
}

func init() {
	registerProfileFlags(reportCmd)
	reportCmd.Flags().StringP("type", "t", string(report.TypeExecutive),
		fmt.Sprintf("report type: %v", report.ReportTypes()))
	reportCmd.Flags().String("format", string(report.FormatText),
		fmt.Sprintf("export format: %v", report.Formats()))
	reportCmd.Flags().String("framework", "", "compliance framework (default owasp_top10)")
	reportCmd.Flags().Bool("include-compliance", false, "attach the compliance mapping to any report type")
	reportCmd.Flags().StringP("input", "i", "", "render from a saved scan result instead of scanning")
	reportCmd.Flags().StringP("output", "O", "", "write the report to a file")
}
