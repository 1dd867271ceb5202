package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
)

var (
	ErrOutOfRange  = errors.New("buffer: out of range")
	ErrType        = errors.New("buffer: unsupported value type")
	ErrInvalidSize = errors.New("buffer: invalid numeric size")
)

var (
	hostOrderOnce sync.Once
	hostLittle    bool
)

// HostIsLittleEndian reports the host byte order. It is detected once and is
// informational only: wire encoding is big-endian on every host.
func HostIsLittleEndian() bool {
	hostOrderOnce.Do(func() {
		hostLittle = binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 1
	})
	return hostLittle
}

// Buffer is a growable byte sequence. Reads at an offset are non-destructive;
// Consume removes bytes from the front, which acts as the read cursor.
// The zero value is an empty buffer ready to use.
type Buffer struct {
	data []byte
}

// New returns a buffer that takes ownership of b.
func New(b []byte) *Buffer {
	return &Buffer{data: b}
}

// NewString returns a buffer holding the bytes of s.
func NewString(s string) *Buffer {
	return &Buffer{data: []byte(s)}
}

// FromBytes returns a buffer holding a copy of b.
func FromBytes(b []byte) *Buffer {
	return &Buffer{data: append([]byte(nil), b...)}
}

// FromArray builds a buffer from byte-sized integers.
func FromArray(values []int) (*Buffer, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("%w: array[%d]=%d does not fit a byte", ErrOutOfRange, i, v)
		}
		out[i] = byte(v)
	}
	return &Buffer{data: out}, nil
}

func (b *Buffer) Size() int {
	return len(b.data)
}

// Len is Size; it lets a buffer be counted like a collection.
func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) Empty() bool {
	return len(b.data) == 0
}

// Bytes returns a copy of the stored bytes.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.data...)
}

func (b *Buffer) String() string {
	return string(b.data)
}

// Clone returns an independent copy of the whole buffer.
func (b *Buffer) Clone() *Buffer {
	return FromBytes(b.data)
}

// Cursor returns a read cursor over b's bytes without copying them.
// Consuming from the cursor leaves b untouched; in-place edits through
// either buffer are visible in both.
func (b *Buffer) Cursor() *Buffer {
	return &Buffer{data: b.data[:len(b.data):len(b.data)]}
}

// Reset drops all stored bytes.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

func (b *Buffer) peek(n, offset int) ([]byte, error) {
	if n < 0 || offset < 0 || offset > len(b.data) || n > len(b.data)-offset {
		return nil, fmt.Errorf("%w: read n=%d offset=%d size=%d", ErrOutOfRange, n, offset, len(b.data))
	}
	return b.data[offset : offset+n], nil
}

// Read returns a copy of n bytes starting at offset without consuming them.
func (b *Buffer) Read(n, offset int) ([]byte, error) {
	raw, err := b.peek(n, offset)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), raw...), nil
}

// Consume removes and returns n bytes from the front of the buffer.
func (b *Buffer) Consume(n int) ([]byte, error) {
	if n < 0 || n > len(b.data) {
		return nil, fmt.Errorf("%w: consume n=%d size=%d", ErrOutOfRange, n, len(b.data))
	}
	out := append([]byte(nil), b.data[:n]...)
	b.data = b.data[n:]
	return out, nil
}

// Append adds raw bytes at the end and returns b for chaining.
func (b *Buffer) Append(raw []byte) *Buffer {
	b.data = append(b.data, raw...)
	return b
}

// Write stores v at offset. An offset at or past the end appends; an interior
// offset overwrites in place and only grows the buffer by the part of v that
// runs past the current end. v must be []byte, string or *Buffer.
func (b *Buffer) Write(v any, offset int) error {
	if offset < 0 {
		return fmt.Errorf("%w: write offset=%d", ErrOutOfRange, offset)
	}
	var raw []byte
	switch x := v.(type) {
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	case *Buffer:
		if x == nil {
			return fmt.Errorf("%w: nil buffer", ErrType)
		}
		raw = x.Bytes()
	default:
		return fmt.Errorf("%w: %T", ErrType, v)
	}
	if offset >= len(b.data) {
		b.data = append(b.data, raw...)
		return nil
	}
	n := copy(b.data[offset:], raw)
	b.data = append(b.data, raw[n:]...)
	return nil
}

// Remove cuts n bytes at offset out of the buffer and returns them.
func (b *Buffer) Remove(n, offset int) ([]byte, error) {
	raw, err := b.Read(n, offset)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		b.data = b.data[n:]
		return raw, nil
	}
	b.data = append(b.data[:offset], b.data[offset+n:]...)
	return raw, nil
}

// Chunk returns an independent buffer over length bytes starting at offset.
// A length <= 0 means everything from offset to the end.
func (b *Buffer) Chunk(offset, length int) (*Buffer, error) {
	if offset < 0 || offset > len(b.data) {
		return nil, fmt.Errorf("%w: chunk offset=%d size=%d", ErrOutOfRange, offset, len(b.data))
	}
	if length <= 0 {
		length = len(b.data) - offset
	}
	raw, err := b.Read(length, offset)
	if err != nil {
		return nil, err
	}
	return New(raw), nil
}

// At returns the byte at i; ok is false outside [0, Size).
func (b *Buffer) At(i int) (byte, bool) {
	if i < 0 || i >= len(b.data) {
		return 0, false
	}
	return b.data[i], true
}

// Set writes one byte at i with Write semantics.
func (b *Buffer) Set(i int, v byte) error {
	return b.WriteUint8(v, i)
}

// Delete removes the byte at i.
func (b *Buffer) Delete(i int) error {
	_, err := b.Remove(1, i)
	return err
}

// All iterates over index/byte pairs in order.
func (b *Buffer) All() iter.Seq2[int, byte] {
	return func(yield func(int, byte) bool) {
		for i, v := range b.data {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (b *Buffer) ToArray() []int {
	out := make([]int, len(b.data))
	for i, v := range b.data {
		out[i] = int(v)
	}
	return out
}

// ToHexString renders the bytes as uppercase hex pairs joined by delim.
func (b *Buffer) ToHexString(delim string) string {
	var sb strings.Builder
	for i, v := range b.data {
		if i > 0 {
			sb.WriteString(delim)
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

// ToNumber decodes the leading size bytes as an unsigned big-endian number.
// A size of 0 uses the current buffer size.
func (b *Buffer) ToNumber(size int) (uint64, error) {
	if size == 0 {
		size = len(b.data)
	}
	switch size {
	case 1:
		v, err := b.ReadUint8(0)
		return uint64(v), err
	case 2:
		v, err := b.ReadUint16(0)
		return uint64(v), err
	case 4:
		v, err := b.ReadUint32(0)
		return uint64(v), err
	case 8:
		return b.ReadUint64(0)
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
}

// FromNumber encodes v into a new buffer of the given width. Floats use the
// IEEE 754 encoding for widths 4 and 8; integers are truncated to the width.
func FromNumber(v any, size int) (*Buffer, error) {
	u, f, isFloat, err := numeric(v)
	if err != nil {
		return nil, err
	}
	out := &Buffer{}
	switch size {
	case 1:
		if isFloat {
			return nil, fmt.Errorf("%w: float for size %d", ErrType, size)
		}
		out.AppendUint8(uint8(u))
	case 2:
		if isFloat {
			return nil, fmt.Errorf("%w: float for size %d", ErrType, size)
		}
		out.AppendUint16(uint16(u))
	case 4:
		if isFloat {
			out.AppendFloat32(float32(f))
		} else {
			out.AppendUint32(uint32(u))
		}
	case 8:
		if isFloat {
			out.AppendFloat64(f)
		} else {
			out.AppendUint64(u)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return out, nil
}

func numeric(v any) (uint64, float64, bool, error) {
	switch x := v.(type) {
	case int:
		return uint64(x), 0, false, nil
	case int8:
		return uint64(x), 0, false, nil
	case int16:
		return uint64(x), 0, false, nil
	case int32:
		return uint64(x), 0, false, nil
	case int64:
		return uint64(x), 0, false, nil
	case uint:
		return uint64(x), 0, false, nil
	case uint8:
		return uint64(x), 0, false, nil
	case uint16:
		return uint64(x), 0, false, nil
	case uint32:
		return uint64(x), 0, false, nil
	case uint64:
		return x, 0, false, nil
	case float32:
		return 0, float64(x), true, nil
	case float64:
		return 0, x, true, nil
	default:
		return 0, 0, false, fmt.Errorf("%w: %T is not numeric", ErrType, v)
	}
}
