package schema

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/danmuck/framewire/internal/protocol/tlv"
	"github.com/danmuck/framewire/internal/testutil/testlog"
)

func TestDefaultRegistersBuiltins(t *testing.T) {
	testlog.Start(t)
	r := Default()
	if got := r.Types(); !slices.Equal(got, []uint16{MsgEcho, MsgPing}) {
		t.Fatalf("unexpected types: %v", got)
	}
	decls, err := r.Lookup(MsgEcho)
	if err != nil {
		t.Fatalf("lookup echo: %v", err)
	}
	if len(decls) != 2 || decls[0].Name != ItemSeq || decls[1].Name != ItemBody {
		t.Fatalf("unexpected echo decls: %+v", decls)
	}
}

func TestLookupUnknownMessageTypeDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := Default().Lookup(99)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.MessageType != 99 || ve.Reason != "unknown message_type" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestRegisterRejectsBadDeclarations(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	cases := []struct {
		name   string
		decls  []packet.Decl
		reason string
	}{
		{"empty name", []packet.Decl{{Name: " ", Decode: tlv.DecodeItem}}, "empty item name"},
		{"no decoder", []packet.Decl{{Name: "x"}}, "missing decoder"},
		{"duplicate", []packet.Decl{SeqDecl(), SeqDecl()}, "duplicate item"},
	}
	for _, tc := range cases {
		err := r.Register(7, tc.decls...)
		var ve ValidationError
		if !errors.As(err, &ve) || ve.Reason != tc.reason {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}

	if err := r.Register(7, SeqDecl()); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(7, SeqDecl())
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Reason != "already registered" {
		t.Fatalf("expected already registered, got %v", err)
	}
}

func TestEchoItemsDecodeWithDeclarations(t *testing.T) {
	testlog.Start(t)
	decls, err := Default().Lookup(MsgEcho)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	payload := &buffer.Buffer{}
	for _, it := range Echo(5, []byte("hello")) {
		if err := it.Data.MapDataToBuffer(); err != nil {
			t.Fatalf("map %s: %v", it.Name, err)
		}
		payload.Append(it.Data.Buffer().Bytes())
	}

	seqItem, err := decls[0].Decode(payload)
	if err != nil {
		t.Fatalf("decode seq: %v", err)
	}
	if seq, _ := opcode.Value[uint32](seqItem.(*opcode.Opcode), ItemSeq); seq != 5 {
		t.Fatalf("unexpected seq %d", seq)
	}
	bodyItem, err := decls[1].Decode(payload)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	body, err := bodyItem.(*tlv.Field).AsBytes()
	if err != nil || string(body) != "hello" {
		t.Fatalf("unexpected body %q err=%v", body, err)
	}
	if !payload.Empty() {
		t.Fatalf("payload not fully consumed: %d", payload.Size())
	}
}

func TestAccessorsAndValidate(t *testing.T) {
	testlog.Start(t)
	r := Default()
	sent := time.UnixMilli(1_700_000_000_123)
	p := packet.New(nil, Ping(3, sent)...)
	if err := r.Validate(MsgPing, p); err != nil {
		t.Fatalf("validate ping: %v", err)
	}
	if seq, ok := Seq(p); !ok || seq != 3 {
		t.Fatalf("seq=%d ok=%v", seq, ok)
	}
	if at, ok := SentAt(p); !ok || !at.Equal(sent) {
		t.Fatalf("sent=%v ok=%v", at, ok)
	}

	err := r.Validate(MsgEcho, p)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != ItemBody {
		t.Fatalf("expected missing body, got %v", err)
	}
	if _, err := Body(p); err == nil {
		t.Fatalf("expected body error for ping packet")
	}
}
