// Package packet owns the header contract and the header+payload packet.
//
// Ownership boundary:
// - header lengths, checksum hooks and the non-owning packet back-reference
// - ordered payload items and whole-packet mapping
// - Format: header decode plus per-header item declarations for the read path
package packet
