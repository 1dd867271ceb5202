package buffer

import (
	"encoding/binary"
	"math"
)

// Fixed-width numeric accessors. Multi-byte values are big-endian.

func (b *Buffer) WriteInt8(v int8, offset int) error {
	return b.Write([]byte{byte(v)}, offset)
}

func (b *Buffer) WriteUint8(v uint8, offset int) error {
	return b.Write([]byte{v}, offset)
}

func (b *Buffer) WriteInt16(v int16, offset int) error {
	return b.WriteUint16(uint16(v), offset)
}

func (b *Buffer) WriteUint16(v uint16, offset int) error {
	return b.Write(binary.BigEndian.AppendUint16(nil, v), offset)
}

func (b *Buffer) WriteInt32(v int32, offset int) error {
	return b.WriteUint32(uint32(v), offset)
}

func (b *Buffer) WriteUint32(v uint32, offset int) error {
	return b.Write(binary.BigEndian.AppendUint32(nil, v), offset)
}

func (b *Buffer) WriteInt64(v int64, offset int) error {
	return b.WriteUint64(uint64(v), offset)
}

func (b *Buffer) WriteUint64(v uint64, offset int) error {
	return b.Write(binary.BigEndian.AppendUint64(nil, v), offset)
}

func (b *Buffer) WriteFloat32(v float32, offset int) error {
	return b.WriteUint32(math.Float32bits(v), offset)
}

func (b *Buffer) WriteFloat64(v float64, offset int) error {
	return b.WriteUint64(math.Float64bits(v), offset)
}

func (b *Buffer) AppendInt8(v int8) *Buffer {
	b.data = append(b.data, byte(v))
	return b
}

func (b *Buffer) AppendUint8(v uint8) *Buffer {
	b.data = append(b.data, v)
	return b
}

func (b *Buffer) AppendInt16(v int16) *Buffer {
	return b.AppendUint16(uint16(v))
}

func (b *Buffer) AppendUint16(v uint16) *Buffer {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
	return b
}

func (b *Buffer) AppendInt32(v int32) *Buffer {
	return b.AppendUint32(uint32(v))
}

func (b *Buffer) AppendUint32(v uint32) *Buffer {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
	return b
}

func (b *Buffer) AppendInt64(v int64) *Buffer {
	return b.AppendUint64(uint64(v))
}

func (b *Buffer) AppendUint64(v uint64) *Buffer {
	b.data = binary.BigEndian.AppendUint64(b.data, v)
	return b
}

func (b *Buffer) AppendFloat32(v float32) *Buffer {
	return b.AppendUint32(math.Float32bits(v))
}

func (b *Buffer) AppendFloat64(v float64) *Buffer {
	return b.AppendUint64(math.Float64bits(v))
}

func (b *Buffer) ReadInt8(offset int) (int8, error) {
	v, err := b.ReadUint8(offset)
	return int8(v), err
}

func (b *Buffer) ReadUint8(offset int) (uint8, error) {
	raw, err := b.peek(1, offset)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

func (b *Buffer) ReadInt16(offset int) (int16, error) {
	v, err := b.ReadUint16(offset)
	return int16(v), err
}

func (b *Buffer) ReadUint16(offset int) (uint16, error) {
	raw, err := b.peek(2, offset)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (b *Buffer) ReadInt32(offset int) (int32, error) {
	v, err := b.ReadUint32(offset)
	return int32(v), err
}

func (b *Buffer) ReadUint32(offset int) (uint32, error) {
	raw, err := b.peek(4, offset)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (b *Buffer) ReadInt64(offset int) (int64, error) {
	v, err := b.ReadUint64(offset)
	return int64(v), err
}

func (b *Buffer) ReadUint64(offset int) (uint64, error) {
	raw, err := b.peek(8, offset)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b *Buffer) ReadFloat32(offset int) (float32, error) {
	v, err := b.ReadUint32(offset)
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64(offset int) (float64, error) {
	v, err := b.ReadUint64(offset)
	return math.Float64frombits(v), err
}

func (b *Buffer) ConsumeInt8() (int8, error) {
	v, err := b.ConsumeUint8()
	return int8(v), err
}

func (b *Buffer) ConsumeUint8() (uint8, error) {
	raw, err := b.Consume(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

func (b *Buffer) ConsumeInt16() (int16, error) {
	v, err := b.ConsumeUint16()
	return int16(v), err
}

func (b *Buffer) ConsumeUint16() (uint16, error) {
	raw, err := b.Consume(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (b *Buffer) ConsumeInt32() (int32, error) {
	v, err := b.ConsumeUint32()
	return int32(v), err
}

func (b *Buffer) ConsumeUint32() (uint32, error) {
	raw, err := b.Consume(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (b *Buffer) ConsumeInt64() (int64, error) {
	v, err := b.ConsumeUint64()
	return int64(v), err
}

func (b *Buffer) ConsumeUint64() (uint64, error) {
	raw, err := b.Consume(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b *Buffer) ConsumeFloat32() (float32, error) {
	v, err := b.ConsumeUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ConsumeFloat64() (float64, error) {
	v, err := b.ConsumeUint64()
	return math.Float64frombits(v), err
}
