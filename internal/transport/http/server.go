package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/auth"
	"github.com/vovakirdan/tcprelay/internal/config"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/metrics"
)

// Relay is the operator-facing surface of the TCP relay.
type Relay interface {
	Start(address string, port int, sharedKey string) error
	Stop()
	Active() bool
	Addr() string
	ListClients() []core.ClientInfo
	Disconnect(id int64) bool
	DisconnectAll() int
	SendDirect(id int64, text string) error
	Broadcast(text string) error
}

// Deps groups what the admin server needs from the rest of the process.
type Deps struct {
	Relay   Relay
	Journal *core.Journal
	Auth    *auth.Service
	Metrics *metrics.Relay
}

// NewServer builds the admin HTTP server with all routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	relayHandlers := NewRelayHandlers(deps.Relay, deps.Journal, cfg.Relay, logger)
	feedHandler := NewFeedHandler(deps.Journal, logger)

	api := router.Group("/api")
	api.POST("/login", LoginRateLimit(cfg.Admin.LoginRate, 3), apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth, logger))
	{
		protected.GET("/status", relayHandlers.Status)
		protected.POST("/relay/start", relayHandlers.Start)
		protected.POST("/relay/stop", relayHandlers.Stop)

		protected.GET("/clients", relayHandlers.ListClients)
		protected.DELETE("/clients", relayHandlers.DisconnectAll)
		protected.DELETE("/clients/:id", relayHandlers.Disconnect)
		protected.POST("/clients/:id/messages", relayHandlers.SendDirect)
		protected.POST("/broadcast", relayHandlers.Broadcast)

		protected.GET("/log", relayHandlers.Log)
		protected.DELETE("/log", relayHandlers.ClearLog)
		protected.GET("/feed", feedHandler.Serve)
	}

	return &stdhttp.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Admin.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
