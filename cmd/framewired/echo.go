package main

import (
	"context"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/danmuck/framewire/internal/server"
)

// echoDispatcher answers echo frames with the same body and ping frames
// carrying the request send time, both under the request sequence number.
func echoDispatcher(reg *schema.Registry) server.Dispatcher {
	return server.DispatchFunc(func(ctx context.Context, s *server.BaseSession, p *packet.Packet) error {
		h, ok := p.Header().(*frame.Header)
		if !ok {
			return fmt.Errorf("framewired: unexpected header %T", p.Header())
		}
		msgType := h.MessageType()
		if err := reg.Validate(msgType, p); err != nil {
			return err
		}
		seq, _ := schema.Seq(p)

		switch msgType {
		case schema.MsgEcho:
			body, err := schema.Body(p)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame.NewPacket(schema.MsgEcho, schema.Echo(seq, body)...))
		case schema.MsgPing:
			sent, _ := schema.SentAt(p)
			return s.Send(ctx, frame.NewPacket(schema.MsgPing, schema.Ping(seq, sent)...))
		default:
			return fmt.Errorf("framewired: no reply for message type %d", msgType)
		}
	})
}
