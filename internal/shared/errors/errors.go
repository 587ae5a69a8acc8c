// Package errors defines the sentinel errors shared across the scan engine.
//
// Analyzer-level network and protocol failures never surface as Go errors to
// engine callers; they are converted into failed outcomes at the analyzer
// boundary. The sentinels here cover the cases that do propagate: malformed
// input, exhausted retries, and operations whose preconditions were not met.
package errors

import "errors"

var (
	// Input errors - fail fast before any network call
	ErrEmptyTarget    = errors.New("target cannot be empty")
	ErrInvalidTarget  = errors.New("target host cannot be parsed")
	ErrUnknownProfile = errors.New("unknown scan profile")
	ErrNoTargets      = errors.New("at least one target is required")

	// Analyzer errors
	ErrRetryExhausted  = errors.New("analyzer failed on all attempts")
	ErrAnalyzerTimeout = errors.New("analyzer did not complete before the scan deadline")

	// Comparison / monitoring errors
	ErrNotEnoughResults = errors.New("comparison requires at least two successful scans")
	ErrNoBaseline       = errors.New("no baseline supplied")

	// Report errors
	ErrUnknownReportType = errors.New("unknown report type")
	ErrUnknownFramework  = errors.New("unknown compliance framework")
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrNoScanData        = errors.New("no scan data supplied")
)
