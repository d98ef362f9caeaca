package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/protocol"
)

// Options configures one lobby listener.
type Options struct {
	// Name identifies the listener in logs ("auth", "view", "data").
	Name string

	// Address is the host:port to listen on.
	Address string

	// ReceiveBufferSize is the read buffer per connection; one read is one payload.
	ReceiveBufferSize int

	// Backlog is the listen backlog. 0 keeps the system default.
	Backlog int

	// MaxClients caps concurrent connections. 0 means unlimited.
	MaxClients int

	// RequireAuthentication routes payloads to OnAuthenticating until accepted.
	RequireAuthentication bool
}

// Server accepts TCP connections and drives one receive loop per client.
type Server struct {
	opts    Options
	handler Handler

	clients  sync.Map // map[uint32]*Client
	slots    *semaphore.Weighted
	buffers  *readBuffers

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a listener-less server. Call Run or Serve to start it.
func NewServer(opts Options, handler Handler) *Server {
	if opts.ReceiveBufferSize <= 0 {
		opts.ReceiveBufferSize = constants.DefaultReceiveBufferSize
	}
	if opts.Name == "" {
		opts.Name = "lobby"
	}

	s := &Server{
		opts:    opts,
		handler: handler,
		buffers: newReadBuffers(opts.ReceiveBufferSize),
	}
	if opts.MaxClients > 0 {
		s.slots = semaphore.NewWeighted(int64(opts.MaxClients))
	}
	return s
}

// Name returns the listener name.
func (s *Server) Name() string {
	return s.opts.Name
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает accept loop.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run creates a tcp4 listener on opts.Address and serves it.
func (s *Server) Run(ctx context.Context) error {
	lc := listenConfig()
	ln, err := lc.Listen(ctx, "tcp4", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Address, err)
	}
	if err := applyBacklog(ln, s.opts.Backlog); err != nil {
		slog.Warn("backlog not applied", "server", s.opts.Name, "backlog", s.opts.Backlog, "err", err)
	}

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Возвращается после отмены ctx и завершения всех соединений.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("lobby server started", "server", s.opts.Name, "address", ln.Addr())
		s.acceptLoop(ctx, &wg, ln)
	})

	wg.Wait()
	slog.Info("lobby server stopped", "server", s.opts.Name)

	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "server", s.opts.Name, "error", err)
				continue
			}

			if s.slots != nil && !s.slots.TryAcquire(1) {
				slog.Warn("connection limit reached", "server", s.opts.Name, "remote", conn.RemoteAddr(), "max", s.opts.MaxClients)
				conn.Close()
				continue
			}

			wg.Go(func() {
				if s.slots != nil {
					defer s.slots.Release(1)
				}
				s.handleConnection(ctx, conn)
			})
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	accepted := true
	s.safeCall(nil, "connecting", func() {
		accepted = s.handler.OnConnecting(conn.RemoteAddr())
	})
	if !accepted {
		slog.Info("connection refused", "server", s.opts.Name, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	c := newClient(s, conn)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Disconnect()
		case <-done:
		}
	}()

	defer func() {
		c.release()
		c.Disconnect()
		s.safeCall(c, "disconnected", func() {
			s.handler.OnDisconnected(c)
		})
	}()

	s.safeCall(c, "connected", func() {
		s.handler.OnConnected(ctx, c)
	})

	bufp := s.buffers.get()
	defer s.buffers.put(bufp)
	buf := *bufp

	for {
		data, err := protocol.ReadPayload(conn, buf)
		if err != nil {
			slog.Debug("connection closed", "server", s.opts.Name, "conn", c.id, "remote", c.remoteIP, "err", err)
			return
		}

		resp, keep := s.dispatch(ctx, c, data)
		if len(resp) > 0 && !c.Send(resp) {
			return
		}
		if !keep {
			return
		}
	}
}

// dispatch routes one payload through the gate or the receive handler.
// keep is false when the connection must be closed after resp is sent.
func (s *Server) dispatch(ctx context.Context, c *Client, data []byte) (resp []byte, keep bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic",
				"server", s.opts.Name,
				"conn", c.id,
				"remote", c.remoteIP,
				"panic", r,
				"stack", string(debug.Stack()))
			resp, keep = nil, true
		}
	}()

	if !s.opts.RequireAuthentication || c.IsAuthenticated() {
		return s.handler.OnReceived(ctx, c, data), true
	}

	// одна попытка на соединение: отказ закрывает сокет после ответа
	resp, accept := s.handler.OnAuthenticating(ctx, c, data)
	if !accept {
		return resp, false
	}

	if !c.Claim(c.AccountID()) {
		slog.Warn("authenticated account already connected",
			"server", s.opts.Name,
			"remote", c.remoteIP,
			"account_id", c.AccountID())
		return resp, false
	}
	c.authenticated.Store(true)

	return resp, true
}

// safeCall runs an event handler, logging instead of propagating panics.
func (s *Server) safeCall(c *Client, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{"server", s.opts.Name, "event", event, "panic", r}
			if c != nil {
				attrs = append(attrs, "conn", c.id, "remote", c.remoteIP)
			}
			slog.Error("handler panic", attrs...)
		}
	}()
	fn()
}

// Lookup returns the registered client for an account.
func (s *Server) Lookup(accountID uint32) (*Client, bool) {
	v, ok := s.clients.Load(accountID)
	if !ok {
		return nil, false
	}
	return v.(*Client), true
}

// Broadcast sends payload to every registered client and returns the number
// of successful sends.
func (s *Server) Broadcast(payload []byte) int {
	sent := 0
	s.clients.Range(func(_, value any) bool {
		if value.(*Client).Send(payload) {
			sent++
		}
		return true
	})
	return sent
}

// ClientCount returns the number of registered clients.
func (s *Server) ClientCount() int {
	count := 0
	s.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
