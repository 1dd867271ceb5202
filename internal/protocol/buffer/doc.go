// Package buffer owns the byte buffer every wire primitive is built on.
//
// Ownership boundary:
// - sequential consume from the front and random-access read/overwrite
// - fixed-width numeric encode/decode, big-endian on the wire
// - conversions to/from arrays, numbers and hex strings
package buffer
