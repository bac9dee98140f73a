package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/tcprelay/internal/auth"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/proto"
)

const readBufferSize = 32 << 10

var errKeyMismatch = errors.New("shared key mismatch")

// serveConn runs one connection from accept to teardown.
func (s *Server) serveConn(ctx context.Context, conn net.Conn, id int64, sharedKey string) {
	client := core.NewClient(id, conn.RemoteAddr().String(), s.cfg.OutboxSize, conn)
	logger := s.log.With().
		Int64("client_id", id).
		Str("session", client.Session).
		Str("remote", client.Remote).
		Logger()

	s.pending.Store(id, client)
	defer s.pending.Delete(id)

	// Stop may have swept pending clients before this one was stored.
	if ctx.Err() != nil {
		_ = client.Close()
		return
	}

	reader := bufio.NewReaderSize(conn, readBufferSize)

	username, err := s.handshake(conn, reader, sharedKey)
	if err != nil {
		logger.Warn().Err(err).Msg("handshake rejected")
		s.metrics.AuthFailed(authFailureReason(err))
		_ = client.Close()
		return
	}
	if err := client.SetName(username); err != nil {
		logger.Warn().Err(err).Msg("handshake rejected")
		s.metrics.AuthFailed("name")
		_ = client.Close()
		return
	}
	logger = logger.With().Str("username", client.Name()).Logger()

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		s.writeLoop(conn, client, &logger)
	}()

	// The ack is queued first so it precedes anything relayed to this client.
	if err := client.Enqueue(proto.AuthorizedAck()); err != nil {
		logger.Warn().Err(err).Msg("queue ack")
		_ = client.Close()
		writerWG.Wait()
		return
	}
	if err := s.hub.Register(client); err != nil {
		logger.Error().Err(err).Msg("register client")
		_ = client.Close()
		writerWG.Wait()
		return
	}
	s.pending.Delete(id)
	if ctx.Err() != nil {
		s.hub.Disconnect(id)
		writerWG.Wait()
		return
	}

	s.readLoop(conn, reader, client, &logger)

	if !s.hub.Disconnect(id) {
		_ = client.Close()
	}
	writerWG.Wait()
	logger.Debug().Msg("connection finished")
}

// handshake reads exactly one credentials frame within the auth timeout.
func (s *Server) handshake(conn net.Conn, r io.Reader, sharedKey string) (string, error) {
	if s.cfg.AuthTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout))
	}

	var (
		payload []byte
		err     error
	)
	for {
		payload, err = proto.ReadFrame(r, s.cfg.MaxFrameBytes)
		if err != nil {
			return "", err
		}
		if len(payload) > 0 {
			break
		}
	}
	s.metrics.BytesIn(proto.HeaderSize + len(payload))

	username, key, err := proto.ParseCredentials(payload)
	if err != nil {
		return "", err
	}
	if !auth.KeyMatches(key, sharedKey) {
		return "", errKeyMismatch
	}

	_ = conn.SetReadDeadline(time.Time{})
	return username, nil
}

func (s *Server) readLoop(conn net.Conn, r io.Reader, client *core.Client, logger *zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-client.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	limiter := s.newLimiter()

	for {
		payload, err := proto.ReadFrame(r, s.cfg.MaxFrameBytes)
		if err != nil {
			if errors.Is(err, proto.ErrFrameTooLarge) {
				logger.Warn().Err(err).Msg("frame dropped")
				s.metrics.FrameDropped("oversized")
				s.hub.Journal().Error("Dropped oversized frame from %s", client.Name())
				continue
			}
			if client.Closed() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Debug().Err(err).Msg("read loop ended")
			} else {
				logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		s.metrics.BytesIn(proto.HeaderSize + len(payload))
		if len(payload) == 0 {
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		s.hub.Route(client, payload)
	}
}

// writeLoop drains the client outbox until the client closes.
func (s *Server) writeLoop(conn net.Conn, client *core.Client, logger *zerolog.Logger) {
	w := bufio.NewWriter(conn)
	for {
		select {
		case <-client.Done():
			return
		case payload := <-client.Outbox():
			if s.cfg.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			}
			err := proto.WriteFrame(w, payload)
			// Batch frames already queued into one flush.
			for err == nil && len(client.Outbox()) > 0 {
				select {
				case next := <-client.Outbox():
					s.metrics.BytesOut(proto.HeaderSize + len(payload))
					payload = next
					err = proto.WriteFrame(w, payload)
				default:
				}
			}
			if err == nil {
				err = w.Flush()
			}
			if err != nil {
				if !client.Closed() {
					logger.Warn().Err(err).Msg("write failed")
					if !s.hub.Disconnect(client.ID) {
						_ = client.Close()
					}
				}
				return
			}
			s.metrics.BytesOut(proto.HeaderSize + len(payload))
		}
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.MessageRate <= 0 {
		return nil
	}
	burst := s.cfg.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.MessageRate), burst)
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, errKeyMismatch):
		return "key"
	case errors.Is(err, proto.ErrMalformedHandshake):
		return "malformed"
	case errors.Is(err, proto.ErrMissingUsername), errors.Is(err, proto.ErrMissingKey):
		return "missing_field"
	case errors.Is(err, proto.ErrFrameTooLarge):
		return "oversized"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "io"
	}
}
