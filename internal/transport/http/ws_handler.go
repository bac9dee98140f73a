package http

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/utils"
)

const feedBuffer = 64

// FeedHandler streams operator log entries over a WebSocket.
type FeedHandler struct {
	journal *core.Journal
	log     *zerolog.Logger
}

// NewFeedHandler builds a new feed handler.
func NewFeedHandler(journal *core.Journal, logger *zerolog.Logger) *FeedHandler {
	return &FeedHandler{journal: journal, log: logger}
}

// Serve upgrades the request and writes the retained log followed by live entries.
// GET /api/feed
func (h *FeedHandler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	session := utils.NewSessionID()
	logger := h.log.With().Str("session", session).Logger()
	logger.Debug().Msg("feed subscriber connected")

	entries, unsubscribe := h.journal.Subscribe(feedBuffer)
	defer unsubscribe()

	// The operator never sends anything; CloseRead handles pings and close frames.
	ctx := conn.CloseRead(c.Request.Context())

	err = h.writeLoop(ctx, conn, entries)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			reason = err.Error()
			logger.Warn().Err(err).Msg("feed closed with error")
		}
	}
	logger.Debug().Msg("feed subscriber disconnected")
	conn.Close(status, reason)
}

func (h *FeedHandler) writeLoop(ctx context.Context, conn *websocket.Conn, live <-chan core.Entry) error {
	for _, entry := range h.journal.Entries() {
		if err := wsjson.Write(ctx, conn, entry); err != nil {
			return err
		}
	}
	for {
		select {
		case entry, ok := <-live:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, entry); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
