package opcode

import (
	"errors"
	"fmt"
	"iter"

	"github.com/danmuck/framewire/internal/protocol/buffer"
)

// DataItem is anything that can be mapped to wire bytes: an opcode, a header,
// a TLV field or a whole packet.
type DataItem interface {
	// IsStaticLength reports whether Length is fixed regardless of content.
	IsStaticLength() bool
	// Length is the encoded size in bytes.
	Length() int
	// Buffer returns the last mapped encoding, or nil before the first map.
	Buffer() *buffer.Buffer
	// MapDataToBuffer re-encodes the current data into the cached buffer.
	MapDataToBuffer() error
}

// Field is one named opcode value used for construction.
type Field struct {
	Name  string
	Value any
}

// Opcode is an ordered set of named scalar fields with a cached encoding.
// Field kinds are inferred from the Go values on encode.
type Opcode struct {
	fields Fields[any]
	buf    *buffer.Buffer
}

func New(fields ...Field) *Opcode {
	o := &Opcode{}
	for _, f := range fields {
		o.fields.Set(f.Name, f.Value)
	}
	return o
}

// Get returns the value stored under name, or nil.
func (o *Opcode) Get(name string) any {
	v, _ := o.fields.Get(name)
	return v
}

func (o *Opcode) Set(name string, v any) {
	o.fields.Set(name, v)
}

func (o *Opcode) Delete(name string) bool {
	return o.fields.Delete(name)
}

func (o *Opcode) Has(name string) bool {
	return o.fields.Has(name)
}

func (o *Opcode) Len() int {
	return o.fields.Len()
}

func (o *Opcode) Keys() []string {
	return o.fields.Keys()
}

// At returns the i-th field in insertion order.
func (o *Opcode) At(i int) (string, any, bool) {
	return o.fields.At(i)
}

func (o *Opcode) All() iter.Seq2[string, any] {
	return o.fields.All()
}

// Data returns a copy of the fields in order.
func (o *Opcode) Data() []Field {
	out := make([]Field, 0, o.fields.Len())
	for k, v := range o.fields.All() {
		out = append(out, Field{Name: k, Value: v})
	}
	return out
}

func (o *Opcode) IsStaticLength() bool {
	for _, v := range o.fields.All() {
		k, err := KindOf(v)
		if err != nil || !k.IsStatic() {
			return false
		}
	}
	return true
}

// Length sums the encoded size of every field. Values with no wire kind
// count as zero; MapDataToBuffer reports them.
func (o *Opcode) Length() int {
	total := 0
	for _, v := range o.fields.All() {
		if n := encodedLen(v); n > 0 {
			total += n
		}
	}
	return total
}

func (o *Opcode) Buffer() *buffer.Buffer {
	return o.buf
}

// MapDataToBuffer encodes the fields in order. On error the previous buffer
// is kept.
func (o *Opcode) MapDataToBuffer() error {
	out := &buffer.Buffer{}
	for k, v := range o.fields.All() {
		if err := appendValue(out, v); err != nil {
			return fmt.Errorf("opcode: field %q: %w", k, err)
		}
	}
	o.buf = out
	return nil
}

// FieldSpec declares the wire kind of one field for decoding.
type FieldSpec struct {
	Name string
	Kind Kind
}

// Layout is the wire order of an opcode.
type Layout []FieldSpec

func (l Layout) IsStatic() bool {
	for _, f := range l {
		if !f.Kind.IsStatic() {
			return false
		}
	}
	return true
}

// Size is the encoded size of a static layout; 0 when any field is variable.
func (l Layout) Size() int {
	total := 0
	for _, f := range l {
		n := f.Kind.Size()
		if n == 0 {
			return 0
		}
		total += n
	}
	return total
}

// Decode consumes one opcode with the given layout from the front of buf.
// When buf holds fewer bytes than the opcode needs it returns ErrShortBuffer
// and leaves buf untouched.
func Decode(buf *buffer.Buffer, layout Layout) (*Opcode, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrDecode)
	}
	if n := layout.Size(); n > 0 && buf.Size() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, buf.Size())
	}
	work := buf.Cursor()
	o := &Opcode{}
	for _, spec := range layout {
		if !spec.Kind.valid() {
			return nil, fmt.Errorf("%w: field %q has %s", ErrDecode, spec.Name, spec.Kind)
		}
		v, err := consumeValue(work, spec.Kind)
		if errors.Is(err, buffer.ErrOutOfRange) {
			return nil, fmt.Errorf("%w: field %q: %v", ErrShortBuffer, spec.Name, err)
		}
		if err != nil {
			return nil, err
		}
		o.fields.Set(spec.Name, v)
	}
	raw, err := buf.Consume(buf.Size() - work.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	o.buf = buffer.New(raw)
	return o, nil
}

// Decoder binds a layout into a reusable decode function.
func Decoder(layout Layout) func(*buffer.Buffer) (DataItem, error) {
	return func(buf *buffer.Buffer) (DataItem, error) {
		o, err := Decode(buf, layout)
		if err != nil {
			return nil, err
		}
		return o, nil
	}
}

// Value returns the field name typed as T.
func Value[T any](o *Opcode, name string) (T, bool) {
	var zero T
	if o == nil {
		return zero, false
	}
	raw, ok := o.fields.Get(name)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
