package packet

import (
	"fmt"
	"iter"
	"time"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
)

// Item is one named payload entry.
type Item struct {
	Name string
	Data opcode.DataItem
}

// Packet is a header plus an ordered set of payload items. Its encoding is
// the header bytes followed by each item's bytes in order.
type Packet struct {
	header  Header
	items   opcode.Fields[opcode.DataItem]
	payload *buffer.Buffer
	buf     *buffer.Buffer
	recv    time.Time
}

// New builds a packet and binds header to it.
func New(header Header, items ...Item) *Packet {
	p := &Packet{header: header}
	if header != nil {
		header.Bind(p)
	}
	for _, it := range items {
		p.items.Set(it.Name, it.Data)
	}
	return p
}

func (p *Packet) Header() Header {
	return p.header
}

// Get returns the item stored under name, or nil.
func (p *Packet) Get(name string) opcode.DataItem {
	v, _ := p.items.Get(name)
	return v
}

func (p *Packet) Set(name string, item opcode.DataItem) {
	p.items.Set(name, item)
}

func (p *Packet) Delete(name string) bool {
	return p.items.Delete(name)
}

func (p *Packet) Len() int {
	return p.items.Len()
}

func (p *Packet) Keys() []string {
	return p.items.Keys()
}

// At returns the i-th payload item in insertion order.
func (p *Packet) At(i int) (string, opcode.DataItem, bool) {
	return p.items.At(i)
}

func (p *Packet) All() iter.Seq2[string, opcode.DataItem] {
	return p.items.All()
}

func (p *Packet) IsStaticLength() bool {
	if p.header == nil || !p.header.IsStaticLength() {
		return false
	}
	for _, it := range p.items.All() {
		if !it.IsStaticLength() {
			return false
		}
	}
	return true
}

func (p *Packet) Length() int {
	total := 0
	if p.header != nil {
		total = p.header.Length()
	}
	for _, it := range p.items.All() {
		total += it.Length()
	}
	return total
}

// Buffer returns header and payload bytes from the last map or decode.
func (p *Packet) Buffer() *buffer.Buffer {
	return p.buf
}

// Payload returns a copy of the payload bytes; empty before the first map.
func (p *Packet) Payload() *buffer.Buffer {
	if p.payload == nil {
		return &buffer.Buffer{}
	}
	return p.payload.Clone()
}

// MapDataToBuffer maps every item in order, then lets the header compute its
// lengths and checksum over the resulting payload.
func (p *Packet) MapDataToBuffer() error {
	if p.header == nil {
		return ErrNoHeader
	}
	payload := &buffer.Buffer{}
	for name, it := range p.items.All() {
		if it == nil {
			return fmt.Errorf("packet: item %q is nil", name)
		}
		if err := it.MapDataToBuffer(); err != nil {
			return fmt.Errorf("packet: map item %q: %w", name, err)
		}
		if err := payload.Write(it.Buffer(), payload.Size()); err != nil {
			return fmt.Errorf("packet: append item %q: %w", name, err)
		}
	}
	p.payload = payload
	if p.header.Packet() != p {
		p.header.Bind(p)
	}
	if err := p.header.CalculateChecksum(); err != nil {
		return fmt.Errorf("packet: checksum: %w", err)
	}
	if err := p.header.MapDataToBuffer(); err != nil {
		return fmt.Errorf("packet: map header: %w", err)
	}
	out := p.header.Buffer().Clone()
	out.Append(payload.Bytes())
	p.buf = out
	return nil
}

// RecvTime is when the packet was decoded off the wire.
func (p *Packet) RecvTime() (time.Time, bool) {
	return p.recv, !p.recv.IsZero()
}

func (p *Packet) Stamp(t time.Time) {
	p.recv = t
}
