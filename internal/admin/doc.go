// Package admin serves the operator HTTP surface of a framewire node: health,
// the live session table and prometheus metrics.
package admin
