// Package frame is the reference wire format: a fixed 16-byte header
// (magic, version, message type, payload length, CRC32) ahead of a payload
// whose items come from the schema registry.
package frame
