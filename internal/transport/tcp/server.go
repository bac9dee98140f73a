package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/config"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/metrics"
)

var (
	// ErrAlreadyActive is returned by Start while the listener is running.
	ErrAlreadyActive = errors.New("server is already active")
	// ErrNotActive is returned for operations that need a running listener.
	ErrNotActive = errors.New("server is not active")
	// ErrAddressRequired is returned by Start for an empty address.
	ErrAddressRequired = errors.New("address is required")
	// ErrNotIPv4 is returned when the address has no IPv4 form.
	ErrNotIPv4 = errors.New("address is not valid or is not IPv4")
	// ErrPortOutOfRange is returned for ports outside 0-65535.
	ErrPortOutOfRange = errors.New("port number is out of range")
)

// Server accepts TCP clients and runs one lifecycle per connection.
// The registry and operator log live in the hub and survive restarts.
type Server struct {
	cfg     config.Relay
	hub     *core.Hub
	metrics *metrics.Relay
	log     *zerolog.Logger

	// lifecycle is held for the whole of Start and Stop, waits included.
	lifecycle sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc

	active  atomic.Bool
	nextID  atomic.Int64
	pending *xsync.MapOf[int64, *core.Client]

	acceptWG sync.WaitGroup
	connWG   sync.WaitGroup
}

// NewServer builds a stopped relay server.
func NewServer(cfg config.Relay, hub *core.Hub, m *metrics.Relay, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		cfg:     cfg,
		hub:     hub,
		metrics: m,
		log:     logger,
		pending: xsync.NewMapOf[int64, *core.Client](),
	}
}

// Start binds address:port over IPv4 and begins accepting clients
// that present sharedKey. On error nothing is left listening.
func (s *Server) Start(address string, port int, sharedKey string) error {
	ip, err := ResolveIPv4(address)
	if err != nil {
		return err
	}
	if port < 0 || port > 65535 {
		return ErrPortOutOfRange
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.active.Load() {
		return ErrAlreadyActive
	}

	ln, err := net.Listen("tcp4", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()
	s.active.Store(true)

	s.acceptWG.Add(1)
	go func() {
		defer s.acceptWG.Done()
		s.acceptLoop(ctx, ln, sharedKey)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
	s.hub.Journal().System("Server has started on %s", ln.Addr())
	return nil
}

// Stop stops accepting, releases the listening socket and disconnects everyone.
func (s *Server) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.active.Load() {
		return
	}
	s.active.Store(false)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.cancel()
	s.mu.Unlock()

	if err := ln.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close listener")
	}
	s.acceptWG.Wait()

	s.pending.Range(func(_ int64, c *core.Client) bool {
		_ = c.Close()
		return true
	})
	s.hub.DisconnectAll()
	s.connWG.Wait()

	s.log.Info().Msg("relay stopped")
	s.hub.Journal().System("Server has stopped")
}

// Active reports whether the listener is running.
func (s *Server) Active() bool {
	return s.active.Load()
}

// Addr returns the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListClients returns (id, username) for every registered client.
func (s *Server) ListClients() []core.ClientInfo {
	return s.hub.Clients()
}

// Disconnect drops one client. Unknown ids are ignored.
func (s *Server) Disconnect(id int64) bool {
	return s.hub.Disconnect(id)
}

// DisconnectAll drops every client registered at call time.
func (s *Server) DisconnectAll() int {
	return s.hub.DisconnectAll()
}

// SendDirect sends an operator message to one client.
func (s *Server) SendDirect(id int64, text string) error {
	if text == "" {
		return core.ErrEmptyMessage
	}
	if err := s.hub.SendTo(id, []byte(s.operatorLine(text))); err != nil {
		return err
	}
	s.hub.Journal().System("Direct message to client %d: %s", id, text)
	return nil
}

// Broadcast sends an operator message to every client.
func (s *Server) Broadcast(text string) error {
	if text == "" {
		return core.ErrEmptyMessage
	}
	s.hub.Broadcast([]byte(s.operatorLine(text)), core.Everyone)
	s.hub.Journal().Message("%s (You): %s", s.cfg.OperatorName, text)
	return nil
}

func (s *Server) operatorLine(text string) string {
	return s.cfg.OperatorName + ": " + text
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, sharedKey string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept")
			continue
		}

		// Ids are taken on the accept goroutine so they follow accept order.
		id := s.nextID.Add(1) - 1
		s.metrics.ConnectionAccepted()

		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			s.serveConn(ctx, conn, id, sharedKey)
		}()
	}
}

// ResolveIPv4 accepts an IPv4 literal or a host name with an IPv4 address.
func ResolveIPv4(address string) (net.IP, error) {
	if address == "" {
		return nil, ErrAddressRequired
	}
	if ip := net.ParseIP(address); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, ErrNotIPv4
	}

	ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip4", address)
	if err != nil || len(ips) == 0 {
		return nil, ErrNotIPv4
	}
	return ips[0].To4(), nil
}
