package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/framewire/internal/server"
	"github.com/danmuck/framewire/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	id   string
	conn server.Conn
	last time.Time
}

func (s *stubSession) ID() string                         { return s.id }
func (s *stubSession) Handler() *server.Handler           { return nil }
func (s *stubSession) Conn() server.Conn                  { return s.conn }
func (s *stubSession) LastActivity() time.Time            { return s.last }
func (s *stubSession) HandleRx(ctx context.Context) error { return nil }

type stubSource map[string]server.Session

func (m stubSource) Sessions() map[string]server.Session { return m }
func (m stubSource) Count() int                          { return len(m) }

func (m stubSource) GetSession(peer string) (server.Session, error) {
	s, ok := m[peer]
	if !ok {
		return nil, fmt.Errorf("%w: %s", server.ErrSessionNotFound, peer)
	}
	return s, nil
}

func pipeConn(t *testing.T) server.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return server.WrapConn(a)
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func fixture(t *testing.T) *Server {
	t.Helper()
	closed := pipeConn(t)
	require.NoError(t, closed.Close())
	src := stubSource{
		"10.0.0.2:7000": &stubSession{id: "s-2", conn: pipeConn(t), last: time.Now()},
		"10.0.0.1:7000": &stubSession{id: "s-1", conn: closed, last: time.Now().Add(-time.Minute)},
	}
	return New(Config{Node: "admin-test"}, src)
}

func TestHealthReportsSessionCount(t *testing.T) {
	testlog.Start(t)
	s := fixture(t)
	rr, body := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "admin-test", body["node"])
	require.EqualValues(t, 2, body["sessions"])
}

func TestSessionsListsPeersSorted(t *testing.T) {
	testlog.Start(t)
	s := fixture(t)
	rr, _ := get(t, s, "/sessions")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count    int           `json:"count"`
		Sessions []SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	require.Equal(t, "10.0.0.1:7000", body.Sessions[0].Peer)
	require.Equal(t, "s-1", body.Sessions[0].ID)
	require.True(t, body.Sessions[0].Closed)
	require.GreaterOrEqual(t, body.Sessions[0].IdleMs, int64(time.Minute/time.Millisecond))
	require.Equal(t, "10.0.0.2:7000", body.Sessions[1].Peer)
	require.False(t, body.Sessions[1].Closed)
}

func TestSessionByPeer(t *testing.T) {
	testlog.Start(t)
	s := fixture(t)
	rr, body := get(t, s, "/sessions/10.0.0.2:7000")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "s-2", body["id"])

	rr, body = get(t, s, "/sessions/10.9.9.9:1")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, body["error"], "session not found")
}

func TestMetricsEndpointExposesSessionGauges(t *testing.T) {
	testlog.Start(t)
	s := fixture(t)
	get(t, s, "/health")
	rr, _ := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "framewire_http_requests_total")
	require.Contains(t, rr.Body.String(), "framewire_sessions_active")
}

func TestTokenGuardsSessionsButNotHealth(t *testing.T) {
	testlog.Start(t)
	s := New(Config{Node: "admin-auth", Token: "s3cret"}, stubSource{})

	rr, _ := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, body := get(t, s, "/sessions")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, body["error"], "missing bearer token")

	for token, want := range map[string]int{"wrong": http.StatusUnauthorized, "s3cret": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		require.Equal(t, want, rr.Code, "token %q", token)
	}
}

func TestServeListenerStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	s := fixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, time.Second, 10*time.Millisecond)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
