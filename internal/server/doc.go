// Package server owns accepted connections and the per-peer session table.
//
// Ownership boundary:
// - listener accept loop and pooled per-connection tasks
// - one session per peer key, created under the table lock
// - periodic eviction of closed and idle sessions
// - start/tick/stop lifecycle through runnable.Runner
//
// Sessions reassemble packets from arbitrary read chunks and hand them to a
// Dispatcher in arrival order.
package server
