package opcode

import (
	"fmt"
	"math"

	"github.com/danmuck/framewire/internal/protocol/buffer"
)

// Kind is the wire encoding of one opcode field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	// KindString is a uint16 length prefix followed by the bytes.
	KindString
	// KindBytes is a uint32 length prefix followed by the bytes.
	KindBytes
)

var kindNames = map[Kind]string{
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindInt64:   "int64",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindBool:    "bool",
	KindString:  "string",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Size is the fixed encoded width; 0 for variable-length and invalid kinds.
func (k Kind) Size() int {
	switch k {
	case KindInt8, KindUint8, KindBool:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

func (k Kind) IsStatic() bool {
	return k.Size() > 0
}

func (k Kind) valid() bool {
	return k > KindInvalid && k <= KindBytes
}

// KindOf infers the wire kind of a Go value. Plain int and uint are rejected
// because their width is platform dependent.
func KindOf(v any) (Kind, error) {
	switch v.(type) {
	case int8:
		return KindInt8, nil
	case uint8:
		return KindUint8, nil
	case int16:
		return KindInt16, nil
	case uint16:
		return KindUint16, nil
	case int32:
		return KindInt32, nil
	case uint32:
		return KindUint32, nil
	case int64:
		return KindInt64, nil
	case uint64:
		return KindUint64, nil
	case float32:
		return KindFloat32, nil
	case float64:
		return KindFloat64, nil
	case bool:
		return KindBool, nil
	case string:
		return KindString, nil
	case []byte:
		return KindBytes, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %T", ErrType, v)
	}
}

// encodedLen is the number of bytes v occupies on the wire, or -1 when v has
// no wire kind.
func encodedLen(v any) int {
	k, err := KindOf(v)
	if err != nil {
		return -1
	}
	switch x := v.(type) {
	case string:
		return 2 + len(x)
	case []byte:
		return 4 + len(x)
	}
	return k.Size()
}

func appendValue(b *buffer.Buffer, v any) error {
	switch x := v.(type) {
	case int8:
		b.AppendInt8(x)
	case uint8:
		b.AppendUint8(x)
	case int16:
		b.AppendInt16(x)
	case uint16:
		b.AppendUint16(x)
	case int32:
		b.AppendInt32(x)
	case uint32:
		b.AppendUint32(x)
	case int64:
		b.AppendInt64(x)
	case uint64:
		b.AppendUint64(x)
	case float32:
		b.AppendFloat32(x)
	case float64:
		b.AppendFloat64(x)
	case bool:
		if x {
			b.AppendUint8(1)
		} else {
			b.AppendUint8(0)
		}
	case string:
		if len(x) > math.MaxUint16 {
			return fmt.Errorf("%w: string length %d exceeds %d", buffer.ErrOutOfRange, len(x), math.MaxUint16)
		}
		b.AppendUint16(uint16(len(x))).Append([]byte(x))
	case []byte:
		if uint64(len(x)) > math.MaxUint32 {
			return fmt.Errorf("%w: bytes length %d exceeds %d", buffer.ErrOutOfRange, len(x), uint64(math.MaxUint32))
		}
		b.AppendUint32(uint32(len(x))).Append(x)
	default:
		return fmt.Errorf("%w: %T", ErrType, v)
	}
	return nil
}

// consumeValue takes one value of kind k from the front of b. Any shortfall is
// reported as buffer.ErrOutOfRange; the caller decides whether that is short
// input or malformed input.
func consumeValue(b *buffer.Buffer, k Kind) (any, error) {
	switch k {
	case KindInt8:
		return b.ConsumeInt8()
	case KindUint8:
		return b.ConsumeUint8()
	case KindInt16:
		return b.ConsumeInt16()
	case KindUint16:
		return b.ConsumeUint16()
	case KindInt32:
		return b.ConsumeInt32()
	case KindUint32:
		return b.ConsumeUint32()
	case KindInt64:
		return b.ConsumeInt64()
	case KindUint64:
		return b.ConsumeUint64()
	case KindFloat32:
		return b.ConsumeFloat32()
	case KindFloat64:
		return b.ConsumeFloat64()
	case KindBool:
		v, err := b.ConsumeUint8()
		return v != 0, err
	case KindString:
		n, err := b.ConsumeUint16()
		if err != nil {
			return nil, err
		}
		raw, err := b.Consume(int(n))
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case KindBytes:
		n, err := b.ConsumeUint32()
		if err != nil {
			return nil, err
		}
		if uint64(n) > uint64(b.Size()) {
			return nil, fmt.Errorf("%w: bytes length %d size=%d", buffer.ErrOutOfRange, n, b.Size())
		}
		return b.Consume(int(n))
	default:
		return nil, fmt.Errorf("%w: invalid kind %s", ErrDecode, k)
	}
}
