package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jung-kurt/gofpdf"

	secerrors "github.com/webposture/webposture/internal/shared/errors"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Formats lists the supported export encodings in a stable order.
func Formats() []Format {
	return []Format{FormatJSON, FormatText, FormatHTML, FormatPDF}
}

//go:embed templates/report.html
var templateFS embed.FS

var htmlTemplate = template.Must(
	template.New("report.html").Funcs(template.FuncMap{
		"formatTime":  formatTimestamp,
		"formatScore": formatScore,
		"riskClass":   riskClass,
	}).ParseFS(templateFS, "templates/report.html"),
)

// Export renders the report in the requested format. Every exporter is a pure
// function of the report object.
func Export(r *Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportJSON(r)
	case FormatText:
		return []byte(ExportText(r)), nil
	case FormatHTML:
		return ExportHTML(r)
	case FormatPDF:
		return ExportPDF(r)
	default:
		return nil, fmt.Errorf("%w: %q", secerrors.ErrUnknownFormat, format)
	}
}

// ExportJSON renders the full report structure as indented JSON.
func ExportJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// ExportText renders a human-readable outline with aligned columns.
func ExportText(r *Report) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Security Assessment Report (%s)\n", r.Type)
	fmt.Fprintf(&buf, "%s\n\n", strings.Repeat("=", 40))

	tw := tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Target:\t%s\n", r.Summary.Target)
	fmt.Fprintf(tw, "Overall Score:\t%s\n", formatScore(r.Summary.OverallScore))
	fmt.Fprintf(tw, "Grade:\t%s\n", r.Summary.OverallGrade)
	fmt.Fprintf(tw, "Risk Level:\t%s\n", r.Summary.RiskLevel)
	fmt.Fprintf(tw, "Generated:\t%s\n", formatTimestamp(r.GeneratedAt))
	tw.Flush()

	if r.Normalized != nil {
		buf.WriteString("\nCategory Scores\n---------------\n")
		tw = tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)
		for _, name := range knownCategories {
			findings := r.Normalized.Categories[name]
			if !findings.Present {
				continue
			}
			if !findings.Success {
				fmt.Fprintf(tw, "%s\tfailed\t%s\n", categoryLabel(name), findings.Error)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", categoryLabel(name), formatScore(findings.Score), findings.Grade)
		}
		tw.Flush()
	}

	if r.Executive != nil {
		writeTextSection(&buf, "Key Findings", r.Executive.KeyFindings)
		writeTextSection(&buf, "Critical Issues", r.Executive.CriticalIssues)
		writeTextSection(&buf, "Immediate Actions", r.Executive.ImmediateActions)
		fmt.Fprintf(&buf, "\nBusiness Impact\n---------------\n%s\n", r.Executive.BusinessImpact)
		writeRecommendationPhases(&buf, r.Executive.NextSteps)
	}

	if r.Technical != nil {
		for _, detail := range r.Technical.Categories {
			heading := fmt.Sprintf("Findings: %s", categoryLabel(detail.Category))
			writeTextSection(&buf, heading, detail.Issues)
			writeTextSection(&buf, "Strengths: "+categoryLabel(detail.Category), detail.Strengths)
		}
		for _, severity := range []string{"critical", "medium", "low"} {
			writeTextSection(&buf, "Vulnerabilities ("+severity+")", r.Technical.Vulnerabilities[severity])
		}
		writeRecommendationPhases(&buf, r.Technical.Remediation)
		if len(r.Technical.Snippets) > 0 {
			buf.WriteString("\nRemediation Snippets\n--------------------\n")
			tw = tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)
			for _, snippet := range r.Technical.Snippets {
				fmt.Fprintf(tw, "%s:\t%s\n", snippet.Header, snippet.Value)
			}
			tw.Flush()
		}
	}

	if r.Compliance != nil {
		fmt.Fprintf(&buf, "\nCompliance: %s\n", r.Compliance.Framework)
		fmt.Fprintf(&buf, "Score: %.0f%% (%d compliant, %d non-compliant)\n",
			r.Compliance.ComplianceScore, r.Compliance.CompliantCount, r.Compliance.NonCompliant)
		tw = tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)
		for _, control := range r.Compliance.Controls {
			status := "FAIL"
			if control.Compliant {
				status = "PASS"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", control.Control.ID, status, control.Control.Title)
		}
		tw.Flush()
		for _, phase := range r.Compliance.Roadmap {
			writeTextSection(&buf, fmt.Sprintf("%s (%s)", phase.Phase, phase.Window), phase.Actions)
		}
	}

	if r.Quick != nil {
		writeTextSection(&buf, "Top Recommendations", r.Quick.TopRecommendations)
	}

	return buf.String()
}

func writeTextSection(buf *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n%s\n%s\n", heading, strings.Repeat("-", len(heading)))
	for _, item := range items {
		fmt.Fprintf(buf, "  - %s\n", item)
	}
}

// writeRecommendationPhases prints the phased recommendation buckets in
// urgency order.
func writeRecommendationPhases(buf *strings.Builder, phases map[string][]string) {
	labels := []struct{ key, heading string }{
		{"immediate", "Immediate Actions (0-30 days)"},
		{"short_term", "Short-Term Actions (30-90 days)"},
		{"long_term", "Long-Term Actions (90+ days)"},
	}
	for _, label := range labels {
		writeTextSection(buf, label.heading, phases[label.key])
	}
}

// ExportHTML renders the minimally styled page form.
func ExportHTML(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF renders a printable document.
func ExportPDF(r *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Security Assessment: %s", r.Summary.Target), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Report type: %s", r.Type), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", formatTimestamp(r.GeneratedAt)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Overall: %s (grade %s, risk %s)",
		formatScore(r.Summary.OverallScore), r.Summary.OverallGrade, r.Summary.RiskLevel), "", 1, "", false, 0, "")
	pdf.Ln(4)

	if r.Normalized != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Category Scores", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, name := range knownCategories {
			findings := r.Normalized.Categories[name]
			if !findings.Present {
				continue
			}
			line := fmt.Sprintf("%s: assessment failed (%s)", categoryLabel(name), findings.Error)
			if findings.Success {
				line = fmt.Sprintf("%s: %s (grade %s)", categoryLabel(name), formatScore(findings.Score), findings.Grade)
			}
			pdf.CellFormat(0, 6, line, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	if r.Executive != nil {
		writePDFList(pdf, "Key Findings", r.Executive.KeyFindings)
		writePDFList(pdf, "Critical Issues", r.Executive.CriticalIssues)
		writePDFList(pdf, "Immediate Actions", r.Executive.ImmediateActions)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Business Impact", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, r.Executive.BusinessImpact, "", "", false)
		pdf.Ln(4)
	}

	if r.Technical != nil {
		for _, detail := range r.Technical.Categories {
			writePDFList(pdf, fmt.Sprintf("Findings: %s", categoryLabel(detail.Category)), detail.Issues)
		}
		if len(r.Technical.Snippets) > 0 {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, "Remediation Snippets", "", 1, "", false, 0, "")
			pdf.SetFont("Courier", "", 9)
			for _, snippet := range r.Technical.Snippets {
				pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", snippet.Header, snippet.Value), "", "", false)
			}
			pdf.Ln(4)
		}
	}

	if r.Compliance != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Compliance: %s", r.Compliance.Framework), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Score: %.0f%% (%d compliant, %d non-compliant)",
			r.Compliance.ComplianceScore, r.Compliance.CompliantCount, r.Compliance.NonCompliant), "", 1, "", false, 0, "")
		for _, control := range r.Compliance.Controls {
			status := "FAIL"
			if control.Compliant {
				status = "PASS"
			}
			if pdf.GetY() > 270 {
				pdf.AddPage()
			}
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s %s - %s",
				status, control.Control.ID, control.Control.Title, control.Evidence), "", "", false)
		}
		pdf.Ln(4)
	}

	if r.Quick != nil {
		writePDFList(pdf, "Top Recommendations", r.Quick.TopRecommendations)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFList(pdf *gofpdf.Fpdf, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, heading, "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("- %s", item), "", "", false)
	}
	pdf.Ln(3)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04 MST")
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f/100", score)
}

func riskClass(risk string) string {
	switch strings.ToLower(risk) {
	case "very low", "low":
		return "risk-low"
	case "medium":
		return "risk-medium"
	default:
		return "risk-high"
	}
}
