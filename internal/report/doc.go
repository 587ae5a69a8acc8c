// Package report turns scan results into reader-facing reports.
//
// Scan outcomes are first normalized into a fixed category schema
// (headers, ssl_tls, dns, general) with the overall posture recomputed from
// the category scores, so reports built from externally supplied data are
// internally consistent. From the normalized form the package renders four
// shapes (executive, technical, compliance, quick) and exports any of them
// as JSON, aligned text, HTML, or PDF. Everything here is a pure
// transformation; no network or filesystem access happens during rendering.
package report
