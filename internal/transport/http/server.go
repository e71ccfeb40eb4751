package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// Server is the HTTP server plus background work owned by the transport.
type Server struct {
	*stdhttp.Server
	limits limits
}

// NewServer builds an HTTP server with the WebSocket endpoint and the
// presence API. authService may be nil when tokens are not required.
func NewServer(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	lim := limits{
		core.CommandJoin:           newRateLimiter(cfg.JoinRateLimit, cfg.RateLimitWindow),
		core.CommandSendMessage:    newRateLimiter(cfg.MessageRateLimit, cfg.RateLimitWindow),
		core.CommandPrivateMessage: newRateLimiter(cfg.MessageRateLimit, cfg.RateLimitWindow),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	presence := NewPresenceHandlers(hub, logger)
	api := router.Group("/api")
	api.GET("/stats", presence.Stats)
	api.GET("/online", presence.Online)
	api.GET("/presence/:user_id", presence.UserPresence)

	// gin's response writer refuses to hijack for the WebSocket upgrade, so
	// /ws is served by the mux in front of the engine.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, lim, cfg.OutboundBuffer, wsReadLimit(cfg.MaxMessageLength), logger))
	mux.Handle("/", router)

	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		limits: lim,
	}
}

// StartMaintenance runs periodic rate limiter cleanup until stop closes.
func (s *Server) StartMaintenance(stop <-chan struct{}) {
	for _, l := range s.limits {
		l.startSweep(stop)
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
