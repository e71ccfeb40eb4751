package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// PresenceHandlers exposes the session directory over HTTP.
type PresenceHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewPresenceHandlers creates a new presence handlers instance.
func NewPresenceHandlers(hub *core.Hub, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{
		hub: hub,
		log: logger,
	}
}

// PresenceResponse describes one user's presence.
type PresenceResponse struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
	Since       string `json:"since,omitempty"`
}

// OnlineResponse lists online users.
type OnlineResponse struct {
	Users []string `json:"users"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserPresence reports whether a user is online.
// GET /api/presence/:user_id
func (h *PresenceHandlers) UserPresence(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	resp := PresenceResponse{
		UserID:      userID,
		Online:      h.hub.Presence.IsOnline(userID),
		Connections: len(h.hub.Registry.ConnectionsFor(userID)),
	}
	if since, ok := h.hub.Presence.Since(userID); ok {
		resp.Since = since.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// Online lists every online user.
// GET /api/online
func (h *PresenceHandlers) Online(c *gin.Context) {
	c.JSON(http.StatusOK, OnlineResponse{Users: h.hub.Presence.Online()})
}

// Stats reports registry sizes.
// GET /api/stats
func (h *PresenceHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Registry.Stats())
}
