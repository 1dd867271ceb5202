package tlv

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
)

// HeaderLen is id u16 + type u8 + value length u32.
const HeaderLen = 7

var (
	ErrShortFieldHeader = fmt.Errorf("%w: tlv: short field header", opcode.ErrShortBuffer)
	ErrShortFieldValue  = fmt.Errorf("%w: tlv: short field value", opcode.ErrShortBuffer)
	ErrTypeMismatch     = errors.New("tlv: field type mismatch")
	ErrValueTooLarge    = errors.New("tlv: value too large")
)

// Type IDs.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
)

// Field is one type-length-value entry. It is always variable length.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte

	buf *buffer.Buffer
}

func NewBytes(id uint16, v []byte) *Field {
	return &Field{ID: id, Type: TypeBytes, Value: append([]byte(nil), v...)}
}

func NewString(id uint16, v string) *Field {
	return &Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func NewUint8(id uint16, v uint8) *Field {
	return &Field{ID: id, Type: TypeU8, Value: []byte{v}}
}

func NewUint16(id uint16, v uint16) *Field {
	return &Field{ID: id, Type: TypeU16, Value: (&buffer.Buffer{}).AppendUint16(v).Bytes()}
}

func NewUint32(id uint16, v uint32) *Field {
	return &Field{ID: id, Type: TypeU32, Value: (&buffer.Buffer{}).AppendUint32(v).Bytes()}
}

func NewUint64(id uint16, v uint64) *Field {
	return &Field{ID: id, Type: TypeU64, Value: (&buffer.Buffer{}).AppendUint64(v).Bytes()}
}

func NewBool(id uint16, v bool) *Field {
	b := uint8(0)
	if v {
		b = 1
	}
	return &Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

func (f *Field) IsStaticLength() bool {
	return false
}

func (f *Field) Length() int {
	return HeaderLen + len(f.Value)
}

func (f *Field) Buffer() *buffer.Buffer {
	return f.buf
}

func (f *Field) MapDataToBuffer() error {
	if uint64(len(f.Value)) > math.MaxUint32 {
		return fmt.Errorf("%w: id=%d len=%d", ErrValueTooLarge, f.ID, len(f.Value))
	}
	out := &buffer.Buffer{}
	out.AppendUint16(f.ID).AppendUint8(f.Type).AppendUint32(uint32(len(f.Value))).Append(f.Value)
	f.buf = out
	return nil
}

// Decode consumes one field from the front of buf. A truncated field leaves
// buf untouched and returns an error wrapping opcode.ErrShortBuffer.
func Decode(buf *buffer.Buffer) (*Field, error) {
	if buf.Size() < HeaderLen {
		return nil, ErrShortFieldHeader
	}
	id, _ := buf.ReadUint16(0)
	typeID, _ := buf.ReadUint8(2)
	l, _ := buf.ReadUint32(3)
	if uint64(buf.Size()-HeaderLen) < uint64(l) {
		return nil, fmt.Errorf("%w: id=%d want=%d have=%d", ErrShortFieldValue, id, l, buf.Size()-HeaderLen)
	}
	raw, err := buf.Consume(HeaderLen + int(l))
	if err != nil {
		return nil, err
	}
	return &Field{
		ID:    id,
		Type:  typeID,
		Value: raw[HeaderLen:],
		buf:   buffer.New(raw),
	}, nil
}

// DecodeItem is Decode shaped for payload declarations.
func DecodeItem(buf *buffer.Buffer) (opcode.DataItem, error) {
	f, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Field) mustType(expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("%w: field %d got %d want %d", ErrTypeMismatch, f.ID, f.Type, expected)
	}
	return nil
}

func (f *Field) fixed(expected uint8, size int) (*buffer.Buffer, error) {
	if err := f.mustType(expected); err != nil {
		return nil, err
	}
	if len(f.Value) != size {
		return nil, fmt.Errorf("%w: field %d invalid length %d", ErrTypeMismatch, f.ID, len(f.Value))
	}
	return buffer.New(f.Value), nil
}

func (f *Field) AsBytes() ([]byte, error) {
	if err := f.mustType(TypeBytes); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.Value...), nil
}

func (f *Field) AsString() (string, error) {
	if err := f.mustType(TypeString); err != nil {
		return "", err
	}
	return string(f.Value), nil
}

func (f *Field) AsUint8() (uint8, error) {
	b, err := f.fixed(TypeU8, 1)
	if err != nil {
		return 0, err
	}
	return b.ReadUint8(0)
}

func (f *Field) AsUint16() (uint16, error) {
	b, err := f.fixed(TypeU16, 2)
	if err != nil {
		return 0, err
	}
	return b.ReadUint16(0)
}

func (f *Field) AsUint32() (uint32, error) {
	b, err := f.fixed(TypeU32, 4)
	if err != nil {
		return 0, err
	}
	return b.ReadUint32(0)
}

func (f *Field) AsUint64() (uint64, error) {
	b, err := f.fixed(TypeU64, 8)
	if err != nil {
		return 0, err
	}
	return b.ReadUint64(0)
}

func (f *Field) AsBool() (bool, error) {
	b, err := f.fixed(TypeBool, 1)
	if err != nil {
		return false, err
	}
	v, err := b.ReadUint8(0)
	return v != 0, err
}
