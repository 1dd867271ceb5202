package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/runnable"
	"github.com/rs/zerolog"
)

type Option func(*Handler)

// WithLogger replaces the handler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// Handler owns the listener and the peer -> session table. At most one
// session exists per peer key; the table is only mutated under mu.
type Handler struct {
	cfg     Config
	ln      Listener
	factory SessionFactory
	log     zerolog.Logger
	runner  *runnable.Runner

	mu       sync.RWMutex
	sessions map[string]Session
	closed   bool

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

func NewHandler(cfg Config, ln Listener, factory SessionFactory, opts ...Option) *Handler {
	cfg = cfg.WithDefaults()
	h := &Handler{
		cfg:      cfg,
		ln:       ln,
		factory:  factory,
		log:      observability.NodeLogger("server", cfg.Node),
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.runner = runnable.New(h,
		runnable.WithName("server.Handler"),
		runnable.WithTickInterval(cfg.TickInterval),
		runnable.WithShutdownTimeout(cfg.ShutdownTimeout),
	)
	return h
}

func (h *Handler) Config() Config {
	return h.cfg
}

func (h *Handler) Listener() Listener {
	return h.ln
}

// InitSession returns the session for conn's peer, creating it exactly once.
func (h *Handler) InitSession(ctx context.Context, conn Conn) (Session, error) {
	if conn == nil {
		return nil, fmt.Errorf("server: init session: nil conn")
	}
	key := PeerKey(conn.RemoteAddr())

	h.mu.RLock()
	s, ok := h.sessions[key]
	closed := h.closed
	h.mu.RUnlock()
	if ok {
		return s, nil
	}
	if closed {
		return nil, ErrServerClosed
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrServerClosed
	}
	if s, ok := h.sessions[key]; ok {
		return s, nil
	}
	if h.factory == nil {
		return nil, fmt.Errorf("server: init session %s: no session factory", key)
	}
	s, err := h.factory(ctx, h, conn)
	if err != nil {
		return nil, fmt.Errorf("server: init session %s: %w", key, err)
	}
	if s == nil {
		return nil, ErrNilSession
	}
	h.sessions[key] = s
	observability.RecordSessionCreated(len(h.sessions))
	h.log.Debug().Str("peer", key).Str("session", s.ID()).Msg("server.Handler.InitSession created")
	return s, nil
}

func (h *Handler) HasSession(peer string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[peer]
	return ok
}

// GetSession returns the session for peer or ErrSessionNotFound.
func (h *Handler) GetSession(peer string) (Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[peer]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, peer)
	}
	return s, nil
}

// Sessions returns a snapshot of the table keyed by peer.
func (h *Handler) Sessions() map[string]Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Session, len(h.sessions))
	for k, s := range h.sessions {
		out[k] = s
	}
	return out
}

func (h *Handler) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sweep drops sessions whose connection is closed and closes and drops
// sessions idle past the inactivity timeout. It returns the number removed.
func (h *Handler) Sweep(now time.Time) int {
	var inactive []Session
	closedCount := 0

	h.mu.Lock()
	retained := make(map[string]Session, len(h.sessions))
	for key, s := range h.sessions {
		switch {
		case s.Conn().IsClosed():
			closedCount++
			h.log.Debug().Str("peer", key).Msg("server.Handler.Sweep drop closed")
		case h.cfg.InactivityTimeout > 0 && now.Sub(s.LastActivity()) > h.cfg.InactivityTimeout:
			inactive = append(inactive, s)
			h.log.Debug().Str("peer", key).Dur("idle", now.Sub(s.LastActivity())).Msg("server.Handler.Sweep drop inactive")
		default:
			retained[key] = s
		}
	}
	h.sessions = retained
	active := len(retained)
	h.mu.Unlock()

	for _, s := range inactive {
		if err := s.Conn().Close(); err != nil {
			h.log.Warn().Err(err).Str("session", s.ID()).Msg("server.Handler.Sweep close")
		}
	}
	observability.RecordSessionsEvicted(observability.EvictClosed, closedCount, active)
	observability.RecordSessionsEvicted(observability.EvictInactivity, len(inactive), active)
	return closedCount + len(inactive)
}

func (h *Handler) startSweeper() {
	h.sweepMu.Lock()
	defer h.sweepMu.Unlock()
	if h.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	h.sweepStop = stop
	h.sweepDone = done
	gopool.Go(func() {
		defer close(done)
		ticker := time.NewTicker(h.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				h.Sweep(now)
			}
		}
	})
}

// stopSweeper cancels the sweep timer and waits for an in-flight sweep.
func (h *Handler) stopSweeper() {
	h.sweepMu.Lock()
	stop, done := h.sweepStop, h.sweepDone
	h.sweepStop, h.sweepDone = nil, nil
	h.sweepMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// SweeperRunning reports whether the eviction timer is active.
func (h *Handler) SweeperRunning() bool {
	h.sweepMu.Lock()
	defer h.sweepMu.Unlock()
	return h.sweepStop != nil
}

func (h *Handler) accept(ctx context.Context, conn Conn) {
	defer conn.Close()
	key := PeerKey(conn.RemoteAddr())

	s, err := h.InitSession(ctx, conn)
	if err == nil && s.Conn() != conn && s.Conn().IsClosed() {
		h.dropStale(key, s)
		s, err = h.InitSession(ctx, conn)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("peer", key).Msg("server.Handler.accept session unavailable")
		return
	}
	if err := s.HandleRx(ctx); err != nil {
		h.log.Warn().Err(err).Str("peer", key).Msg("server.Handler.accept session ended")
		return
	}
	h.log.Debug().Str("peer", key).Msg("server.Handler.accept session done")
}

// dropStale removes s if it is still the tabled session for key. A peer that
// reconnects from the same address before the sweep must not inherit a
// session bound to its previous connection.
func (h *Handler) dropStale(key string, s Session) {
	h.mu.Lock()
	cur, ok := h.sessions[key]
	if ok && cur == s {
		delete(h.sessions, key)
	}
	active := len(h.sessions)
	h.mu.Unlock()
	if ok && cur == s {
		observability.RecordSessionsEvicted(observability.EvictClosed, 1, active)
	}
}

// OnStart wires the acceptor and the sweep timer, then serves. A handler that
// was already shut down stays closed.
func (h *Handler) OnStart(ctx context.Context) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrServerClosed
	}
	if h.ln == nil {
		return ErrNoListener
	}

	h.ln.OnAccept(h.accept)
	h.startSweeper()
	gopool.Go(func() {
		err := h.ln.Serve(ctx)
		if err != nil {
			h.runner.Fail(fmt.Errorf("server: listener: %w", err))
			return
		}
		h.runner.Stop()
	})
	h.log.Info().Str("addr", h.ln.Addr().String()).Msg("server.Handler.OnStart serving")
	return nil
}

// OnTick is a heartbeat.
func (h *Handler) OnTick(_ context.Context, now time.Time) error {
	h.log.Trace().Time("now", now).Int("sessions", h.Count()).Msg("server.Handler.OnTick")
	return nil
}

// OnEnd cancels the sweep timer, refuses new sessions and clears the table.
// Connections of cleared sessions are closed so their receive loops end.
func (h *Handler) OnEnd(_ context.Context) error {
	h.stopSweeper()

	h.mu.Lock()
	h.closed = true
	cleared := h.sessions
	h.sessions = make(map[string]Session)
	h.mu.Unlock()

	for _, s := range cleared {
		_ = s.Conn().Close()
	}
	observability.RecordSessionsEvicted(observability.EvictShutdown, len(cleared), 0)
	h.log.Info().Int("cleared", len(cleared)).Msg("server.Handler.OnEnd")
	return nil
}

// OnShutdownPending cancels the sweep timer and drains the listener.
func (h *Handler) OnShutdownPending(ctx context.Context) error {
	h.stopSweeper()
	if h.ln == nil {
		return nil
	}
	if err := h.ln.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: drain listener: %w", err)
	}
	return nil
}

// Run drives the handler until ctx is done, Shutdown is called or the
// listener fails. A listener error is returned after graceful shutdown.
func (h *Handler) Run(ctx context.Context) error {
	return h.runner.Run(ctx)
}

// Shutdown stops a running handler and waits for teardown. On a handler that
// never ran it clears the table and drains the listener directly.
func (h *Handler) Shutdown(ctx context.Context) error {
	if !h.runner.Started() {
		return errors.Join(h.OnEnd(ctx), h.OnShutdownPending(ctx))
	}
	h.runner.Stop()
	select {
	case <-h.runner.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
