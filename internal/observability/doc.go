// Package observability owns process metrics and node-tagged loggers.
//
// Ownership boundary:
// - prometheus collectors, registered once on first use
// - session table, packet decode and admin HTTP recorders
package observability
