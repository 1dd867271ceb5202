package packet

import (
	"fmt"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
)

// Header is the framing opcode of a packet. It knows the full and payload
// lengths and owns the checksum over the payload.
type Header interface {
	opcode.DataItem
	// Packet is the packet this header is bound to, or nil.
	Packet() *Packet
	Bind(p *Packet)
	FullPacketLength() int
	DataPacketLength() int
	// CalculateChecksum refreshes lengths and checksum from the bound packet payload.
	CalculateChecksum() error
	// ValidateChecksum reports whether the stored checksum matches the bound payload.
	ValidateChecksum() bool
}

// BaseHeader carries the state every header needs. Concrete headers embed it
// and supply the checksum methods.
type BaseHeader struct {
	pkt    *Packet
	full   int
	data   int
	Fields *opcode.Opcode
}

func NewBaseHeader(fields ...opcode.Field) BaseHeader {
	return BaseHeader{Fields: opcode.New(fields...)}
}

// BaseHeaderFrom wraps header fields that were already decoded.
func BaseHeaderFrom(o *opcode.Opcode) BaseHeader {
	if o == nil {
		o = opcode.New()
	}
	return BaseHeader{Fields: o}
}

func (h *BaseHeader) Packet() *Packet {
	return h.pkt
}

// Bind records the owning packet. The reference is non-owning.
func (h *BaseHeader) Bind(p *Packet) {
	h.pkt = p
}

func (h *BaseHeader) FullPacketLength() int {
	return h.full
}

func (h *BaseHeader) DataPacketLength() int {
	return h.data
}

// SetLengths stores full and payload lengths; full >= data >= 0 must hold.
func (h *BaseHeader) SetLengths(full, data int) error {
	if data < 0 || full < data {
		return fmt.Errorf("%w: lengths full=%d data=%d", ErrMalformed, full, data)
	}
	h.full = full
	h.data = data
	return nil
}

func (h *BaseHeader) IsStaticLength() bool {
	return h.Fields.IsStaticLength()
}

func (h *BaseHeader) Length() int {
	return h.Fields.Length()
}

func (h *BaseHeader) Buffer() *buffer.Buffer {
	return h.Fields.Buffer()
}

func (h *BaseHeader) MapDataToBuffer() error {
	return h.Fields.MapDataToBuffer()
}
