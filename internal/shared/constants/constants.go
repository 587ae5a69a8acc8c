package constants

import "time"

const (
	// DefaultScanTimeout bounds a full single-target scan across all analyzers.
	DefaultScanTimeout = 60 * time.Second
	// DefaultAnalyzerTimeout bounds one analyzer attempt.
	DefaultAnalyzerTimeout = 15 * time.Second
	// DefaultDNSTimeout bounds a single DNS lookup.
	DefaultDNSTimeout = 5 * time.Second
)

const (
	// MaxRetryAttempts is the total attempt budget per analyzer (1 call + 2 retries).
	MaxRetryAttempts = 3
	// RetryBackoffUnit is multiplied by the attempt number between retries.
	RetryBackoffUnit = time.Second
)

const (
	// BatchConcurrencyCap bounds outbound scan fan-out regardless of what the
	// caller requests.
	BatchConcurrencyCap = 10
	// DefaultBatchConcurrency is used when the caller does not request a bound.
	DefaultBatchConcurrency = 5
	// DefaultSubdomainConcurrency bounds the subdomain probe worker pool.
	DefaultSubdomainConcurrency = 10
)

const (
	// DefaultDoHEndpoint answers JSON DNS queries for record types the system
	// resolver cannot return.
	DefaultDoHEndpoint = "https://dns.google/resolve"
)

const (
	// DefaultMinimumScore is the monitoring alert floor for the overall score.
	DefaultMinimumScore = 70.0
	// DefaultMaxCriticalIssues is the monitoring alert ceiling for critical findings.
	DefaultMaxCriticalIssues = 0
)
