package packet

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
)

// Decl declares one payload item of a message and how to decode it.
type Decl struct {
	Name   string
	Decode func(*buffer.Buffer) (opcode.DataItem, error)
}

// Format registers a concrete wire format with the decode path.
type Format struct {
	// DecodeHeader consumes one header from the front of the buffer. It must
	// return opcode.ErrShortBuffer when the header is incomplete.
	DecodeHeader func(*buffer.Buffer) (Header, error)
	// Items declares the payload items for a decoded header.
	Items func(Header) ([]Decl, error)
	// MaxPayload bounds DataPacketLength; 0 means unbounded.
	MaxPayload int
}

// CreateFromBuffer decodes one packet from the front of buf without checking
// its checksum. On any error buf is left untouched; on success exactly the
// packet's bytes are consumed.
func (f Format) CreateFromBuffer(buf *buffer.Buffer) (*Packet, error) {
	return f.create(buf, false)
}

// Decode is CreateFromBuffer plus checksum validation. The checksum is
// checked before any payload item is decoded.
func (f Format) Decode(buf *buffer.Buffer) (*Packet, error) {
	return f.create(buf, true)
}

func (f Format) create(buf *buffer.Buffer, validate bool) (*Packet, error) {
	if f.DecodeHeader == nil || f.Items == nil {
		return nil, fmt.Errorf("%w: incomplete format", opcode.ErrDecode)
	}
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", opcode.ErrDecode)
	}
	work := buf.Cursor()
	h, err := f.DecodeHeader(work)
	if err != nil {
		return nil, err
	}
	n := h.DataPacketLength()
	if f.MaxPayload > 0 && n > f.MaxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, f.MaxPayload)
	}
	if work.Size() < n {
		return nil, fmt.Errorf("%w: payload need %d bytes, have %d", opcode.ErrShortBuffer, n, work.Size())
	}
	raw, err := work.Consume(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := New(h)
	p.payload = buffer.FromBytes(raw)
	if validate && !h.ValidateChecksum() {
		return nil, ErrChecksumMismatch
	}

	decls, err := f.Items(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	body := buffer.New(raw)
	for _, d := range decls {
		if d.Decode == nil {
			return nil, fmt.Errorf("%w: item %q has no decoder", ErrMalformed, d.Name)
		}
		item, err := d.Decode(body)
		if errors.Is(err, opcode.ErrShortBuffer) {
			return nil, fmt.Errorf("%w: item %q overruns payload: %v", ErrMalformed, d.Name, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %w", ErrMalformed, d.Name, err)
		}
		p.items.Set(d.Name, item)
	}
	if !body.Empty() {
		return nil, fmt.Errorf("%w: %d trailing payload bytes", ErrMalformed, body.Size())
	}
	used, err := buf.Consume(buf.Size() - work.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	p.buf = buffer.New(used)
	p.Stamp(time.Now())
	return p, nil
}
