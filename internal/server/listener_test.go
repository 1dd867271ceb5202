package server

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

// holdingListener serves connections with an acceptor that blocks until the
// peer goes away and counts how many acceptors run at once.
func holdingListener(t *testing.T, opts ...ListenOption) (*TCPListener, *atomic.Int32) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", opts...)
	require.NoError(t, err)

	var running atomic.Int32
	ln.OnAccept(func(_ context.Context, conn Conn) {
		running.Add(1)
		defer running.Add(-1)
		_, _ = io.Copy(io.Discard, conn)
	})

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- ln.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		shutCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		require.NoError(t, ln.Shutdown(shutCtx))
		require.NoError(t, <-served)
	})
	return ln, &running
}

func dialN(t *testing.T, addr string, n int) []net.Conn {
	t.Helper()
	conns := make([]net.Conn, 0, n)
	for range n {
		c, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	t.Cleanup(func() {
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return conns
}

func TestListenerServesEveryConnectionConcurrently(t *testing.T) {
	testlog.Start(t)
	ln, running := holdingListener(t)

	const peers = 64
	dialN(t, ln.Addr().String(), peers)
	require.Eventually(t, func() bool { return running.Load() == peers }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, peers, ln.Active())
}

func TestListenerClosesConnectionsOverLimit(t *testing.T) {
	testlog.Start(t)
	ln, running := holdingListener(t, WithMaxConns(2))

	held := dialN(t, ln.Addr().String(), 2)
	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)

	over := dialN(t, ln.Addr().String(), 1)[0]
	require.NoError(t, over.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := over.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, ln.Active())

	// a freed slot is served again
	require.NoError(t, held[0].Close())
	require.Eventually(t, func() bool { return ln.Active() == 1 }, time.Second, 5*time.Millisecond)
	dialN(t, ln.Addr().String(), 1)
	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
}
