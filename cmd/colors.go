package cmd

import (
	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatGrade colors a letter grade by how happy the reader should be.
func formatGrade(grade string) string {
	switch grade {
	case "A", "B":
		return colorSuccess(grade)
	case "C":
		return colorWarn(grade)
	default:
		return colorError(grade)
	}
}

// formatRisk colors a risk level label.
func formatRisk(risk string) string {
	switch risk {
	case "Very Low", "Low":
		return colorSuccess(risk)
	case "Medium":
		return colorWarn(risk)
	default:
		return colorError(risk)
	}
}

// formatStatus colors a PASS/FAIL monitoring status.
func formatStatus(status string) string {
	if status == "PASS" {
		return colorSuccess(status)
	}
	return colorError(status)
}
