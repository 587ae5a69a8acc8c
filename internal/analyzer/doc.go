// Package analyzer implements the leaf probes of the posture scan engine.
//
// Architecture overview:
//
//   - Analyzers implement the Analyzer interface (Analyze + Name) for one
//     assessment category each: HTTP response headers, TLS/certificate
//     configuration, and DNS security posture.
//   - Every analyzer converts network and protocol failures into a failed
//     Outcome instead of returning an error, so the orchestrator always joins
//     a complete set of outcomes.
//   - Shared helpers (ParseTarget, Grade) and the Outcome struct are factored
//     here so the orchestrator and report packages aggregate over one typed
//     shape rather than loose maps.
//
// All probes are read-only: HTTP GET, TLS client handshakes, and DNS queries.
// Nothing in this package mutates the target.
package analyzer
