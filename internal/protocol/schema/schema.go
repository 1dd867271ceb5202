package schema

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/protocol/opcode"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/danmuck/framewire/internal/protocol/tlv"
)

// Built-in message types.
const (
	MsgEcho uint16 = 1
	MsgPing uint16 = 2
)

// Item names used by the built-in messages.
const (
	ItemSeq        = "seq"
	ItemBody       = "body"
	ItemSentUnixMs = "sent_unix_ms"
)

// FieldBody is the TLV id carried in an echo body.
const FieldBody uint16 = 1

type ValidationError struct {
	MessageType uint16
	Field       string
	Reason      string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%q: %s", e.MessageType, e.Field, e.Reason)
}

// Registry maps message types to their ordered payload declarations.
type Registry struct {
	mu    sync.RWMutex
	decls map[uint16][]packet.Decl
}

func NewRegistry() *Registry {
	return &Registry{decls: make(map[uint16][]packet.Decl)}
}

// Default returns a registry holding the built-in echo and ping messages.
func Default() *Registry {
	r := NewRegistry()
	if err := r.Register(MsgEcho, SeqDecl(), packet.Decl{Name: ItemBody, Decode: tlv.DecodeItem}); err != nil {
		panic(err)
	}
	if err := r.Register(MsgPing, SeqDecl(), Uint64Decl(ItemSentUnixMs)); err != nil {
		panic(err)
	}
	return r
}

// Register declares the payload of msgType. A type can only be registered once.
func (r *Registry) Register(msgType uint16, decls ...packet.Decl) error {
	seen := make(map[string]struct{}, len(decls))
	for _, d := range decls {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return ValidationError{MessageType: msgType, Reason: "empty item name"}
		}
		if d.Decode == nil {
			return ValidationError{MessageType: msgType, Field: name, Reason: "missing decoder"}
		}
		if _, dup := seen[name]; dup {
			return ValidationError{MessageType: msgType, Field: name, Reason: "duplicate item"}
		}
		seen[name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decls[msgType]; exists {
		return ValidationError{MessageType: msgType, Reason: "already registered"}
	}
	r.decls[msgType] = slices.Clone(decls)
	log := logging.For("schema")
	log.Debug().Uint16("message_type", msgType).Int("items", len(decls)).Msg("schema.Registry.Register")
	return nil
}

// Lookup returns the declarations for msgType.
func (r *Registry) Lookup(msgType uint16) ([]packet.Decl, error) {
	r.mu.RLock()
	decls, ok := r.decls[msgType]
	r.mu.RUnlock()
	if !ok {
		log := logging.For("schema")
		log.Warn().Uint16("message_type", msgType).Msg("schema.Registry.Lookup unknown message_type")
		return nil, ValidationError{MessageType: msgType, Reason: "unknown message_type"}
	}
	return slices.Clone(decls), nil
}

// Types returns the registered message types in ascending order.
func (r *Registry) Types() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint16, 0, len(r.decls))
	for t := range r.decls {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Validate checks that p carries every item declared for msgType.
func (r *Registry) Validate(msgType uint16, p *packet.Packet) error {
	decls, err := r.Lookup(msgType)
	if err != nil {
		return err
	}
	for _, d := range decls {
		if p.Get(d.Name) == nil {
			return ValidationError{MessageType: msgType, Field: d.Name, Reason: "missing required item"}
		}
	}
	if p.Len() != len(decls) {
		return ValidationError{MessageType: msgType, Reason: fmt.Sprintf("expected %d items, got %d", len(decls), p.Len())}
	}
	return nil
}

// SeqDecl declares a single uint32 sequence number item.
func SeqDecl() packet.Decl {
	return packet.Decl{
		Name:   ItemSeq,
		Decode: opcode.Decoder(opcode.Layout{{Name: ItemSeq, Kind: opcode.KindUint32}}),
	}
}

// Uint64Decl declares a single uint64 item stored under name.
func Uint64Decl(name string) packet.Decl {
	return packet.Decl{
		Name:   name,
		Decode: opcode.Decoder(opcode.Layout{{Name: name, Kind: opcode.KindUint64}}),
	}
}

// Echo builds the payload items of an echo message.
func Echo(seq uint32, body []byte) []packet.Item {
	return []packet.Item{
		{Name: ItemSeq, Data: opcode.New(opcode.Field{Name: ItemSeq, Value: seq})},
		{Name: ItemBody, Data: tlv.NewBytes(FieldBody, body)},
	}
}

// Ping builds the payload items of a ping message.
func Ping(seq uint32, sent time.Time) []packet.Item {
	return []packet.Item{
		{Name: ItemSeq, Data: opcode.New(opcode.Field{Name: ItemSeq, Value: seq})},
		{Name: ItemSentUnixMs, Data: opcode.New(opcode.Field{Name: ItemSentUnixMs, Value: uint64(sent.UnixMilli())})},
	}
}

// Seq reads the sequence number of an echo or ping packet.
func Seq(p *packet.Packet) (uint32, bool) {
	o, ok := p.Get(ItemSeq).(*opcode.Opcode)
	if !ok {
		return 0, false
	}
	return opcode.Value[uint32](o, ItemSeq)
}

// Body reads the body of an echo packet.
func Body(p *packet.Packet) ([]byte, error) {
	f, ok := p.Get(ItemBody).(*tlv.Field)
	if !ok {
		return nil, ValidationError{MessageType: MsgEcho, Field: ItemBody, Reason: "missing required item"}
	}
	return f.AsBytes()
}

// SentAt reads the send time of a ping packet.
func SentAt(p *packet.Packet) (time.Time, bool) {
	o, ok := p.Get(ItemSentUnixMs).(*opcode.Opcode)
	if !ok {
		return time.Time{}, false
	}
	ms, ok := opcode.Value[uint64](o, ItemSentUnixMs)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}
