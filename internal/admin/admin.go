package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/danmuck/framewire/internal/auth"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/server"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var Version = "0.1.0"

// SessionSource is the read side of a session table.
type SessionSource interface {
	Sessions() map[string]server.Session
	GetSession(peer string) (server.Session, error)
	Count() int
}

type SessionInfo struct {
	Peer         string    `json:"peer"`
	ID           string    `json:"id"`
	LastActivity time.Time `json:"last_activity"`
	IdleMs       int64     `json:"idle_ms"`
	Closed       bool      `json:"closed"`
}

func sessionInfo(peer string, s server.Session, now time.Time) SessionInfo {
	last := s.LastActivity()
	return SessionInfo{
		Peer:         peer,
		ID:           s.ID(),
		LastActivity: last,
		IdleMs:       now.Sub(last).Milliseconds(),
		Closed:       s.Conn().IsClosed(),
	}
}

type Config struct {
	Node        string
	Addr        string
	CorsOrigins []string
	// Token, when set, is required as a bearer token on every route but
	// /health.
	Token string
}

// Server is the admin HTTP surface of one node.
type Server struct {
	cfg     Config
	source  SessionSource
	router  *gin.Engine
	log     zerolog.Logger
	started time.Time
}

func New(cfg Config, source SessionSource) *Server {
	observability.RegisterMetrics()
	log := observability.NodeLogger("admin", cfg.Node)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(RequestMetrics(cfg.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		source:  source,
		router:  r,
		log:     log,
		started: time.Now(),
	}
	s.routes()
	return s
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"node":     s.cfg.Node,
			"uptime":   time.Since(s.started).String(),
			"sessions": s.source.Count(),
			"version":  Version,
		})
	})

	routes := s.router.Group("/")
	if s.cfg.Token != "" {
		routes.Use(RequireToken(auth.StaticToken{Token: s.cfg.Token}))
	}

	routes.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.GET("/sessions", func(c *gin.Context) {
		now := time.Now()
		snap := s.source.Sessions()
		out := make([]SessionInfo, 0, len(snap))
		for peer, sess := range snap {
			out = append(out, sessionInfo(peer, sess, now))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Peer < out[j].Peer })
		c.JSON(http.StatusOK, gin.H{
			"count":    len(out),
			"sessions": out,
		})
	})

	routes.GET("/sessions/:peer", func(c *gin.Context) {
		peer := c.Param("peer")
		sess, err := s.source.GetSession(peer)
		if errors.Is(err, server.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessionInfo(peer, sess, time.Now()))
	})
}

// Serve listens on cfg.Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("admin.Server.Serve listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin: serve: %w", err)
	}
	return nil
}
