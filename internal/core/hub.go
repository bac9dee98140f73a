package core

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/metrics"
	"github.com/vovakirdan/tcprelay/internal/proto"
)

// Everyone is the exclude id that excludes nobody.
const Everyone int64 = -1

// Hub owns the registry and fans payloads out to registered clients.
// It never writes to sockets itself; it only fills per-client outboxes.
type Hub struct {
	registry *Registry
	journal  *Journal
	metrics  *metrics.Relay
	log      *zerolog.Logger
}

// NewHub creates a hub. journal, m and logger may be nil.
func NewHub(journal *Journal, m *metrics.Relay, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: NewRegistry(),
		journal:  journal,
		metrics:  m,
		log:      logger,
	}
}

// Journal returns the operator log the hub writes to.
func (h *Hub) Journal() *Journal {
	return h.journal
}

// Register adds an authenticated client and announces it to everyone else.
func (h *Hub) Register(c *Client) error {
	if err := h.registry.Add(c); err != nil {
		return err
	}
	h.metrics.SetClients(h.registry.Len())

	notice := JoinNotice(c.Name())
	h.log.Info().Int64("client_id", c.ID).Str("username", c.Name()).Msg("client registered")
	h.journal.System("%s", notice)
	h.Broadcast([]byte(notice), c.ID)
	return nil
}

// Route classifies one complete inbound payload from c and relays it to
// every other registered client. Attachments with fewer than four fields
// are dropped.
func (h *Hub) Route(c *Client, payload []byte) {
	kind := proto.Classify(payload)
	if kind == proto.KindText {
		line := proto.FormatChat(c.Name(), string(payload))
		h.journal.Message("%s", line)
		h.metrics.FrameRouted(kind.String())
		h.Broadcast([]byte(line), c.ID)
		return
	}

	att, err := proto.ParseAttachment(string(payload))
	if err != nil {
		h.log.Warn().Err(err).Int64("client_id", c.ID).Str("kind", kind.String()).Msg("dropping attachment")
		h.journal.Error("%s sent an unreadable %s: %v", c.Name(), kind, err)
		h.metrics.FrameDropped("bad_attachment")
		return
	}
	// The body is relayed as sent even when this server cannot decode it.
	if _, err := att.Decode(); err != nil {
		h.log.Warn().Err(err).Int64("client_id", c.ID).Str("file", att.Filename).Msg("attachment body is not valid base64")
		h.journal.Error("Could not decode %s from %s: %v", att.Filename, c.Name(), err)
	}

	summary := c.Name() + " sent a file."
	if kind == proto.KindImage {
		summary = c.Name() + " sent an image."
	}
	h.log.Info().Int64("client_id", c.ID).Str("file", att.Filename).Int("bytes", len(payload)).Msg(summary)
	h.journal.Message("%s", summary)
	h.metrics.FrameRouted(kind.String())
	h.Broadcast(payload, c.ID)
}

// Broadcast queues payload for every registered client except exclude and
// returns how many accepted it. Pass Everyone to exclude nobody.
func (h *Hub) Broadcast(payload []byte, exclude int64) int {
	delivered := 0
	for _, c := range h.registry.Snapshot() {
		if c.ID == exclude {
			continue
		}
		if err := h.deliver(c, payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendTo queues payload for exactly one client.
func (h *Hub) SendTo(id int64, payload []byte) error {
	c, ok := h.registry.Get(id)
	if !ok {
		return ErrClientNotFound
	}
	return h.deliver(c, payload)
}

// Disconnect closes the client's socket, removes it and tells the rest.
// Returns false if id was not registered.
func (h *Hub) Disconnect(id int64) bool {
	c, ok := h.registry.Get(id)
	if !ok {
		return false
	}
	if err := c.Close(); err != nil {
		h.log.Debug().Err(err).Int64("client_id", id).Msg("close connection")
	}
	if _, removed := h.registry.Remove(id); !removed {
		// Another teardown path got here first.
		return false
	}
	h.metrics.SetClients(h.registry.Len())

	notice := LeaveNotice(c.Name())
	h.log.Info().Int64("client_id", id).Str("username", c.Name()).Msg("client disconnected")
	h.journal.System("%s", notice)
	h.Broadcast([]byte(notice), id)
	return true
}

// DisconnectAll disconnects every client registered at call time.
func (h *Hub) DisconnectAll() int {
	n := 0
	for _, c := range h.registry.Snapshot() {
		if h.Disconnect(c.ID) {
			n++
		}
	}
	return n
}

// Clients lists registered clients ordered by id.
func (h *Hub) Clients() []ClientInfo {
	snapshot := h.registry.Snapshot()
	out := make([]ClientInfo, 0, len(snapshot))
	for _, c := range snapshot {
		out = append(out, c.Info())
	}
	return out
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	return h.registry.Len()
}

func (h *Hub) deliver(c *Client, payload []byte) error {
	err := c.Enqueue(payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSlowConsumer):
		h.log.Warn().Int64("client_id", c.ID).Msg("outbox full, disconnecting slow client")
		h.journal.Error("%s is not keeping up and was disconnected", c.Name())
		h.metrics.FrameDropped("slow_consumer")
		h.Disconnect(c.ID)
	default:
		h.log.Error().Err(err).Int64("client_id", c.ID).Msg("write to closed connection")
	}
	return err
}
