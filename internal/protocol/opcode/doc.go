// Package opcode owns the DataItem contract and the named-field opcode.
//
// Ownership boundary:
// - DataItem: static/dynamic length, cached encoding, re-map on demand
// - ordered field storage and kind inference from Go values
// - layout-driven decode from the front of a buffer
package opcode
