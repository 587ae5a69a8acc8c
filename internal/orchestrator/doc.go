// Package orchestrator coordinates the posture scan engine.
//
// A single-target scan moves through normalize, configure, dispatch,
// aggregate: the target string is parsed, the effective profile resolved,
// every enabled analyzer dispatched concurrently behind a per-analyzer retry
// loop and one overall deadline, and the joined outcomes reduced to a
// weighted composite score, posture assessment, and prioritized
// recommendations.
//
// Batch scanning, target comparison, and baseline monitoring are built on
// single-target scans. Batch fan-out is bounded by a counting semaphore with
// a hard cap so outbound connection pressure stays fixed no matter what the
// caller requests.
//
// Nothing here persists between calls; every operation is a pure function of
// its arguments plus live network state.
package orchestrator
