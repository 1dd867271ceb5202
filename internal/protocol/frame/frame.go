package frame

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/danmuck/framewire/internal/protocol/schema"
)

const (
	Magic     uint32 = 0xF3A4E001
	Version   uint16 = 1
	HeaderLen        = 16
)

const (
	fieldMagic      = "magic"
	fieldVersion    = "version"
	fieldType       = "message_type"
	fieldPayloadLen = "payload_len"
	fieldChecksum   = "checksum"
)

var (
	ErrInvalidMagic       = fmt.Errorf("%w: frame: invalid magic", opcode.ErrDecode)
	ErrUnsupportedVersion = fmt.Errorf("%w: frame: unsupported version", opcode.ErrDecode)
	ErrShortHeader        = fmt.Errorf("%w: frame: short fixed header", opcode.ErrShortBuffer)
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
)

var headerLayout = opcode.Layout{
	{Name: fieldMagic, Kind: opcode.KindUint32},
	{Name: fieldVersion, Kind: opcode.KindUint16},
	{Name: fieldType, Kind: opcode.KindUint16},
	{Name: fieldPayloadLen, Kind: opcode.KindUint32},
	{Name: fieldChecksum, Kind: opcode.KindUint32},
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Header is the fixed wire header: magic, version, message type, payload
// length and CRC32-IEEE of the payload, all big-endian.
type Header struct {
	packet.BaseHeader
}

func NewHeader(msgType uint16) *Header {
	return &Header{BaseHeader: packet.NewBaseHeader(
		opcode.Field{Name: fieldMagic, Value: Magic},
		opcode.Field{Name: fieldVersion, Value: Version},
		opcode.Field{Name: fieldType, Value: msgType},
		opcode.Field{Name: fieldPayloadLen, Value: uint32(0)},
		opcode.Field{Name: fieldChecksum, Value: uint32(0)},
	)}
}

func (h *Header) MessageType() uint16 {
	v, _ := opcode.Value[uint16](h.Fields, fieldType)
	return v
}

func (h *Header) PayloadLen() uint32 {
	v, _ := opcode.Value[uint32](h.Fields, fieldPayloadLen)
	return v
}

func (h *Header) Checksum() uint32 {
	v, _ := opcode.Value[uint32](h.Fields, fieldChecksum)
	return v
}

func (h *Header) CalculateChecksum() error {
	p := h.Packet()
	if p == nil {
		return packet.ErrUnbound
	}
	payload := p.Payload()
	h.Fields.Set(fieldPayloadLen, uint32(payload.Size()))
	h.Fields.Set(fieldChecksum, crc32.ChecksumIEEE(payload.Bytes()))
	return h.SetLengths(HeaderLen+payload.Size(), payload.Size())
}

func (h *Header) ValidateChecksum() bool {
	p := h.Packet()
	if p == nil {
		return false
	}
	payload := p.Payload()
	return uint32(payload.Size()) == h.PayloadLen() && crc32.ChecksumIEEE(payload.Bytes()) == h.Checksum()
}

// DecodeHeader consumes one fixed header from the front of buf. On error buf
// is untouched.
func DecodeHeader(buf *buffer.Buffer) (*Header, error) {
	if buf.Size() < HeaderLen {
		return nil, ErrShortHeader
	}
	work := buf.Cursor()
	o, err := opcode.Decode(work, headerLayout)
	if err != nil {
		return nil, err
	}
	h := &Header{BaseHeader: packet.BaseHeaderFrom(o)}
	if m, _ := opcode.Value[uint32](o, fieldMagic); m != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrInvalidMagic, m)
	}
	if v, _ := opcode.Value[uint16](o, fieldVersion); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	n := int(h.PayloadLen())
	if err := h.SetLengths(HeaderLen+n, n); err != nil {
		return nil, err
	}
	if _, err := buf.Consume(HeaderLen); err != nil {
		return nil, err
	}
	return h, nil
}

// Format binds the fixed header to a message registry.
func Format(reg *schema.Registry, limits Limits) packet.Format {
	return packet.Format{
		DecodeHeader: func(b *buffer.Buffer) (packet.Header, error) {
			h, err := DecodeHeader(b)
			if err != nil {
				return nil, err
			}
			return h, nil
		},
		Items: func(h packet.Header) ([]packet.Decl, error) {
			fh, ok := h.(*Header)
			if !ok {
				return nil, fmt.Errorf("frame: unexpected header %T", h)
			}
			return reg.Lookup(fh.MessageType())
		},
		MaxPayload: int(limits.MaxPayloadBytes),
	}
}

// NewPacket builds a packet of msgType with the given payload items.
func NewPacket(msgType uint16, items ...packet.Item) *packet.Packet {
	return packet.New(NewHeader(msgType), items...)
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader, f packet.Format, limits Limits) (*packet.Packet, error) {
	fixed := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, fixed); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	buf := buffer.New(fixed)
	n, err := buf.ReadUint32(8)
	if err != nil {
		return nil, err
	}
	if n > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
	}
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	buf.Append(payload)
	return f.Decode(buf)
}

// WritePacket maps p and writes its bytes to w.
func WritePacket(w io.Writer, p *packet.Packet, limits Limits) error {
	if err := p.MapDataToBuffer(); err != nil {
		return err
	}
	if n := p.Header().DataPacketLength(); n > int(limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
	}
	_, err := w.Write(p.Buffer().Bytes())
	return err
}
