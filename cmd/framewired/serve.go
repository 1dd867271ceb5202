package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/danmuck/framewire/internal/admin"
	"github.com/danmuck/framewire/internal/config"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/danmuck/framewire/internal/protocol/schema"
	"github.com/danmuck/framewire/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		adminAddr  string
		nodeName   string
		adminToken string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			cfg := config.DefaultConfig()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = listen
			}
			if flags.Changed("admin") {
				cfg.Admin.Addr = adminAddr
			}
			if flags.Changed("admin-token") {
				cfg.Admin.Token = adminToken
			}
			if flags.Changed("node") {
				cfg.Server.Node = nodeName
				cfg.Admin.Node = nodeName
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := logging.SetLevel(cfg.LogLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			n, err := newNode(cfg)
			if err != nil {
				return err
			}
			return n.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	cmd.Flags().StringVar(&listen, "listen", "", "protocol listen address")
	cmd.Flags().StringVar(&adminAddr, "admin", "", "admin HTTP address, empty disables it")
	cmd.Flags().StringVar(&adminToken, "admin-token", "", "bearer token required by admin routes other than /health")
	cmd.Flags().StringVar(&nodeName, "node", "", "node name used in logs and metrics")
	return cmd
}

// node is one running framewired process: protocol handler plus optional
// admin surface.
type node struct {
	cfg     config.Config
	ln      *server.TCPListener
	handler *server.Handler
	admin   *admin.Server
	adminLn net.Listener
}

func newNode(cfg config.Config) (*node, error) {
	reg := schema.Default()
	ln, err := server.Listen(cfg.Listen, server.WithMaxConns(cfg.Server.MaxConns))
	if err != nil {
		return nil, err
	}
	factory := server.NewSessionFactory(frame.Format(reg, cfg.Limits), echoDispatcher(reg))
	n := &node{
		cfg:     cfg,
		ln:      ln,
		handler: server.NewHandler(cfg.Server, ln, factory),
	}
	if cfg.Admin.Addr != "" {
		adminLn, err := net.Listen("tcp", cfg.Admin.Addr)
		if err != nil {
			_ = ln.Shutdown(context.Background())
			return nil, err
		}
		n.adminLn = adminLn
		n.admin = admin.New(cfg.Admin, n.handler)
	}
	return n, nil
}

func (n *node) Addr() net.Addr {
	return n.ln.Addr()
}

func (n *node) AdminAddr() net.Addr {
	if n.adminLn == nil {
		return nil
	}
	return n.adminLn.Addr()
}

// Run serves until ctx is done or the protocol handler stops. The admin
// surface is stopped with it.
func (n *node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		adminErr error
	)
	if n.admin != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.admin.ServeListener(ctx, n.adminLn); err != nil {
				adminErr = err
				cancel()
			}
		}()
	}

	runErr := n.handler.Run(ctx)
	cancel()
	wg.Wait()
	return errors.Join(runErr, adminErr)
}
