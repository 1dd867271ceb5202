package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/danmuck/framewire/internal/logging"
)

// AcceptFunc handles one accepted connection. It runs on its own task and
// owns the connection until it returns.
type AcceptFunc func(ctx context.Context, conn Conn)

// Listener is the accept side of the server.
type Listener interface {
	Addr() net.Addr
	OnAccept(fn AcceptFunc)
	// Serve accepts until Shutdown or ctx is done. It returns nil on a
	// requested stop and the accept error otherwise.
	Serve(ctx context.Context) error
	// Shutdown stops accepting and waits for in-flight accept tasks.
	Shutdown(ctx context.Context) error
}

// TCPListener binds on construction and runs every accepted connection on its
// own goroutine.
type TCPListener struct {
	ln       net.Listener
	maxConns int

	mu     sync.Mutex
	accept AcceptFunc
	conns  map[net.Conn]struct{}

	tasks   sync.WaitGroup
	closing atomic.Bool
}

type ListenOption func(*TCPListener)

// WithMaxConns caps concurrently served connections. Connections over the cap
// are closed on accept. n <= 0 means no cap.
func WithMaxConns(n int) ListenOption {
	return func(l *TCPListener) {
		l.maxConns = n
	}
}

// Listen binds addr on tcp.
func Listen(addr string, opts ...ListenOption) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return NewTCPListener(ln, opts...), nil
}

// NewTCPListener wraps an already bound listener.
func NewTCPListener(ln net.Listener, opts ...ListenOption) *TCPListener {
	l := &TCPListener{
		ln:    ln,
		conns: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *TCPListener) OnAccept(fn AcceptFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accept = fn
}

func (l *TCPListener) Serve(ctx context.Context) error {
	log := logging.For("server")
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.closing.Store(true)
			_ = l.ln.Close()
		case <-stop:
		}
	}()

	log.Info().Str("addr", l.ln.Addr().String()).Msg("server.TCPListener.Serve listening")
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("server.TCPListener.Serve accept failed")
			return fmt.Errorf("server: accept: %w", err)
		}

		l.mu.Lock()
		fn := l.accept
		full := l.maxConns > 0 && len(l.conns) >= l.maxConns
		if fn != nil && !full {
			l.conns[conn] = struct{}{}
		}
		l.mu.Unlock()

		switch {
		case fn == nil:
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("server.TCPListener.Serve no acceptor")
			_ = conn.Close()
			continue
		case full:
			log.Warn().Str("remote", conn.RemoteAddr().String()).Int("max_conns", l.maxConns).Msg("server.TCPListener.Serve connection limit reached")
			_ = conn.Close()
			continue
		}

		l.tasks.Add(1)
		go l.serveConn(ctx, fn, conn)
	}
}

func (l *TCPListener) serveConn(ctx context.Context, fn AcceptFunc, conn net.Conn) {
	defer l.tasks.Done()
	defer l.untrack(conn)
	defer func() {
		if r := recover(); r != nil {
			log := logging.For("server")
			log.Error().Interface("panic", r).Str("remote", conn.RemoteAddr().String()).Msg("server.TCPListener task panic")
			_ = conn.Close()
		}
	}()
	fn(ctx, WrapConn(conn))
}

// Active reports the number of connections being served.
func (l *TCPListener) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

func (l *TCPListener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
}

// Shutdown closes the listening socket and waits for accept tasks. When ctx
// ends first, the remaining connections are closed and ctx.Err is returned.
func (l *TCPListener) Shutdown(ctx context.Context) error {
	l.closing.Store(true)
	err := l.ln.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		log := logging.For("server")
		log.Warn().Err(err).Msg("server.TCPListener.Shutdown close")
	}

	drained := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	for c := range l.conns {
		_ = c.Close()
	}
	l.mu.Unlock()
	return ctx.Err()
}
