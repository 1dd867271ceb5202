package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is the connection a session reads from. Its lifecycle belongs to the
// listener and the handler, not to the session.
type Conn interface {
	io.ReadWriteCloser
	IsClosed() bool
	RemoteAddr() net.Addr
}

// PeerKey is the session table key for a remote address.
func PeerKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

type netConn struct {
	net.Conn
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// WrapConn adapts a net.Conn. The wrapper remembers a local Close and any read
// that reported the peer gone.
func WrapConn(c net.Conn) Conn {
	if wrapped, ok := c.(Conn); ok {
		return wrapped
	}
	return &netConn{Conn: c}
}

func (c *netConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if err != nil && isClosedErr(err) {
		c.closed.Store(true)
	}
	return n, err
}

func (c *netConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

func (c *netConn) IsClosed() bool {
	return c.closed.Load()
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}
