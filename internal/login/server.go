package login

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/lockout"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/network"
	"github.com/udisondev/xilogin/internal/session"
)

// Server is the lobby front door: the auth, view and data listeners sharing
// one session directory.
type Server struct {
	cfg      config.LoginServer
	sessions *session.Directory

	auth *network.Server
	view *network.Server
	data *network.Server
}

// NewServer creates the three lobby listeners. Call Run or Serve to start them.
func NewServer(cfg config.LoginServer, repo Repository, lockouts lockout.Store) (*Server, error) {
	sessions := session.NewDirectory(cfg.CleanupInterval)

	viewHandler, err := NewViewHandler(cfg, repo, sessions)
	if err != nil {
		return nil, fmt.Errorf("creating login server: %w", err)
	}

	opts := func(name string, port int, gated bool) network.Options {
		return network.Options{
			Name:                  name,
			Address:               cfg.Addr(port),
			ReceiveBufferSize:     cfg.ReceiveBufferSize,
			Backlog:               cfg.Backlog,
			MaxClients:            cfg.MaxClients,
			RequireAuthentication: gated,
		}
	}

	return &Server{
		cfg:      cfg,
		sessions: sessions,
		auth:     network.NewServer(opts("auth", cfg.AuthPort, true), NewAuthHandler(cfg, repo, sessions, lockouts)),
		view:     network.NewServer(opts("view", cfg.ViewPort, false), viewHandler),
		data:     network.NewServer(opts("data", cfg.DataPort, false), NewDataHandler(cfg, repo, sessions)),
	}, nil
}

// Sessions возвращает директорию сессий (для status API).
func (s *Server) Sessions() *session.Directory {
	return s.sessions
}

// Listeners returns the auth, view and data servers in that order.
func (s *Server) Listeners() []*network.Server {
	return []*network.Server{s.auth, s.view, s.data}
}

// Run listens on the configured ports and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.sessions.Run(gctx) })
	for _, srv := range s.Listeners() {
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("%s server: %w", srv.Name(), err)
			}
			return nil
		})
	}

	slog.Info("login server running",
		"server_name", s.cfg.ServerName,
		"auth_port", s.cfg.AuthPort,
		"view_port", s.cfg.ViewPort,
		"data_port", s.cfg.DataPort)

	return g.Wait()
}

// Serve runs the listeners on already opened sockets. Used by tests.
func (s *Server) Serve(ctx context.Context, authLn, viewLn, dataLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.sessions.Run(gctx) })
	g.Go(func() error { return s.auth.Serve(gctx, authLn) })
	g.Go(func() error { return s.view.Serve(gctx, viewLn) })
	g.Go(func() error { return s.data.Serve(gctx, dataLn) })

	return g.Wait()
}

// NotifyMaintenance sends WORLD_SERVER_MAINTENANCE to every registered view
// socket and returns how many received it.
func (s *Server) NotifyMaintenance() int {
	sent := s.view.Broadcast(serverpackets.ViewErrorResponse(serverpackets.ErrWorldMaintenance))
	slog.Info("maintenance notice sent", "view_clients", sent)
	return sent
}
