package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol/buffer"
	"github.com/danmuck/framewire/internal/protocol/opcode"
	"github.com/danmuck/framewire/internal/protocol/packet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one peer's state in the handler table.
type Session interface {
	ID() string
	// Handler is the owning handler. The reference is non-owning.
	Handler() *Handler
	Conn() Conn
	LastActivity() time.Time
	// HandleRx runs the receive loop until the connection ends. A nil return
	// is a natural end; an error means the stream could not be decoded.
	HandleRx(ctx context.Context) error
}

// SessionFactory creates the session for a new peer. It runs under the
// handler's table lock and must not block on I/O.
type SessionFactory func(ctx context.Context, h *Handler, conn Conn) (Session, error)

// Dispatcher receives every decoded packet in arrival order.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *BaseSession, p *packet.Packet) error
}

type DispatchFunc func(ctx context.Context, s *BaseSession, p *packet.Packet) error

func (f DispatchFunc) Dispatch(ctx context.Context, s *BaseSession, p *packet.Packet) error {
	return f(ctx, s, p)
}

// BaseSession decodes packets of one Format off its connection.
type BaseSession struct {
	id       string
	handler  *Handler
	conn     Conn
	format   packet.Format
	dispatch Dispatcher
	log      zerolog.Logger

	last    atomic.Int64
	writeMu sync.Mutex
}

func NewBaseSession(h *Handler, conn Conn, format packet.Format, d Dispatcher) *BaseSession {
	s := &BaseSession{
		id:       uuid.NewString(),
		handler:  h,
		conn:     conn,
		format:   format,
		dispatch: d,
	}
	s.log = s.logger()
	s.last.Store(time.Now().UnixNano())
	return s
}

// NewSessionFactory returns a factory creating BaseSessions for format.
func NewSessionFactory(format packet.Format, d Dispatcher) SessionFactory {
	return func(_ context.Context, h *Handler, conn Conn) (Session, error) {
		return NewBaseSession(h, conn, format, d), nil
	}
}

func (s *BaseSession) logger() zerolog.Logger {
	return observability.NodeLogger("server", s.node()).With().
		Str("session", s.id).
		Str("peer", PeerKey(s.conn.RemoteAddr())).
		Logger()
}

func (s *BaseSession) ID() string {
	return s.id
}

func (s *BaseSession) Handler() *Handler {
	return s.handler
}

func (s *BaseSession) Conn() Conn {
	return s.conn
}

func (s *BaseSession) LastActivity() time.Time {
	return time.Unix(0, s.last.Load())
}

// touch moves last activity forward; it never moves backwards.
func (s *BaseSession) touch(now time.Time) {
	ns := now.UnixNano()
	for {
		cur := s.last.Load()
		if ns <= cur || s.last.CompareAndSwap(cur, ns) {
			return
		}
	}
}

func (s *BaseSession) node() string {
	if s.handler != nil {
		return s.handler.cfg.Node
	}
	return DefaultConfig().Node
}

func (s *BaseSession) readSize() int {
	if s.handler != nil {
		return s.handler.cfg.ReadBufferSize
	}
	return DefaultConfig().ReadBufferSize
}

func (s *BaseSession) HandleRx(ctx context.Context) error {
	acc := &buffer.Buffer{}
	chunk := make([]byte, s.readSize())
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := s.conn.Read(chunk)
		if n > 0 {
			acc.Append(chunk[:n])
			if derr := s.drain(ctx, acc); derr != nil {
				return derr
			}
		}
		if err != nil {
			if isClosedErr(err) || s.conn.IsClosed() {
				s.log.Debug().Msg("server.BaseSession.HandleRx connection closed")
			} else {
				s.log.Warn().Err(err).Msg("server.BaseSession.HandleRx read failed")
			}
			return nil
		}
	}
}

// drain decodes every complete packet in acc, in order.
func (s *BaseSession) drain(ctx context.Context, acc *buffer.Buffer) error {
	for !acc.Empty() {
		p, err := s.format.Decode(acc)
		if errors.Is(err, opcode.ErrShortBuffer) {
			return nil
		}
		if err != nil {
			observability.RecordDecodeError(s.node())
			s.log.Warn().Err(err).Int("buffered", acc.Size()).Msg("server.BaseSession.HandleRx decode failed")
			return fmt.Errorf("server: session %s: %w", s.id, err)
		}
		recv, _ := p.RecvTime()
		s.touch(recv)
		observability.RecordPacketDecoded(s.node(), p.Buffer().Size())
		if s.dispatch == nil {
			continue
		}
		if err := s.dispatch.Dispatch(ctx, s, p); err != nil {
			s.log.Warn().Err(err).Msg("server.BaseSession.HandleRx dispatch failed")
			return fmt.Errorf("server: session %s dispatch: %w", s.id, err)
		}
	}
	return nil
}

// Send maps p and writes it to the connection. Writes are serialized.
func (s *BaseSession) Send(ctx context.Context, p *packet.Packet) error {
	if err := p.MapDataToBuffer(); err != nil {
		return err
	}
	raw := p.Buffer().Bytes()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn.IsClosed() {
		return ErrConnClosed
	}
	if wd, ok := s.conn.(writeDeadliner); ok {
		deadline, has := ctx.Deadline()
		if !has && s.handler != nil && s.handler.cfg.WriteTimeout > 0 {
			deadline = time.Now().Add(s.handler.cfg.WriteTimeout)
		}
		_ = wd.SetWriteDeadline(deadline)
	}
	if _, err := s.conn.Write(raw); err != nil {
		return fmt.Errorf("server: session %s write: %w", s.id, err)
	}
	return nil
}
