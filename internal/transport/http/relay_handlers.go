package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/config"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/transport/tcp"
)

// RelayHandlers exposes relay operations to the operator.
type RelayHandlers struct {
	relay   Relay
	journal *core.Journal
	cfg     config.Relay
	log     *zerolog.Logger
}

// NewRelayHandlers creates relay handlers. cfg supplies defaults for Start.
func NewRelayHandlers(relay Relay, journal *core.Journal, cfg config.Relay, logger *zerolog.Logger) *RelayHandlers {
	return &RelayHandlers{
		relay:   relay,
		journal: journal,
		cfg:     cfg,
		log:     logger,
	}
}

// StatusResponse describes the relay listener.
type StatusResponse struct {
	Active  bool   `json:"active"`
	Address string `json:"address,omitempty"`
	Clients int    `json:"clients"`
}

// StartRequest optionally overrides the configured bind address.
type StartRequest struct {
	Address string `json:"address"`
	Port    *int   `json:"port"`
}

// TextRequest carries an operator message.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// CountResponse reports how many clients an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// Status reports whether the relay is listening.
// GET /api/status
func (h *RelayHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// Start binds the relay listener.
// POST /api/relay/start
func (h *RelayHandlers) Start(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
			return
		}
	}
	address := h.cfg.Address
	if req.Address != "" {
		address = req.Address
	}
	port := h.cfg.Port
	if req.Port != nil {
		port = *req.Port
	}

	if err := h.relay.Start(address, port, h.cfg.SharedKey); err != nil {
		h.log.Warn().Err(err).Str("address", address).Int("port", port).Msg("relay start failed")
		h.journal.Error("Failed to start server: %v", err)
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, h.status())
}

// Stop closes the relay listener and disconnects everyone.
// POST /api/relay/stop
func (h *RelayHandlers) Stop(c *gin.Context) {
	if !h.relay.Active() {
		c.JSON(errorResponse(tcp.ErrNotActive))
		return
	}
	h.relay.Stop()
	c.JSON(http.StatusOK, h.status())
}

// ListClients returns connected clients ordered by id.
// GET /api/clients
func (h *RelayHandlers) ListClients(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.ListClients())
}

// Disconnect drops one client.
// DELETE /api/clients/:id
func (h *RelayHandlers) Disconnect(c *gin.Context) {
	id, err := parseClientID(c.Param("id"))
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	if !h.relay.Disconnect(id) {
		c.JSON(errorResponse(core.ErrClientNotFound))
		return
	}
	h.log.Info().Int64("client_id", id).Str("operator", c.GetString(ContextKeyUsername)).Msg("client disconnected by operator")
	c.Status(http.StatusNoContent)
}

// DisconnectAll drops every client.
// DELETE /api/clients
func (h *RelayHandlers) DisconnectAll(c *gin.Context) {
	n := h.relay.DisconnectAll()
	h.log.Info().Int("count", n).Str("operator", c.GetString(ContextKeyUsername)).Msg("all clients disconnected by operator")
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// SendDirect sends an operator message to one client.
// POST /api/clients/:id/messages
func (h *RelayHandlers) SendDirect(c *gin.Context) {
	id, err := parseClientID(c.Param("id"))
	if err != nil {
		c.JSON(errorResponse(err))
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(errorResponse(core.ErrEmptyMessage))
		return
	}
	if err := h.relay.SendDirect(id, req.Text); err != nil {
		c.JSON(errorResponse(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Broadcast sends an operator message to every client.
// POST /api/broadcast
func (h *RelayHandlers) Broadcast(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(errorResponse(core.ErrEmptyMessage))
		return
	}
	if !h.relay.Active() {
		c.JSON(errorResponse(tcp.ErrNotActive))
		return
	}
	if err := h.relay.Broadcast(req.Text); err != nil {
		if !errors.Is(err, core.ErrEmptyMessage) {
			h.log.Error().Err(err).Msg("operator broadcast failed")
		}
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: len(h.relay.ListClients())})
}

// Log returns the retained operator log.
// GET /api/log
func (h *RelayHandlers) Log(c *gin.Context) {
	entries := h.journal.Entries()
	if entries == nil {
		entries = []core.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// ClearLog empties the operator log.
// DELETE /api/log
func (h *RelayHandlers) ClearLog(c *gin.Context) {
	h.journal.Clear()
	c.Status(http.StatusNoContent)
}

func (h *RelayHandlers) status() StatusResponse {
	return StatusResponse{
		Active:  h.relay.Active(),
		Address: h.relay.Addr(),
		Clients: len(h.relay.ListClients()),
	}
}
