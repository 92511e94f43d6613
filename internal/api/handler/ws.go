package handler

import (
	"context"
	"net/http"

	"fadechat/backend/internal/chathub"
	"fadechat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the HTTP connection and hands it to the hub. A
// token is optional: connections without one stay anonymous, so the user id
// is unresolved until the client reconnects with credentials.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := h.bearerUserID(c)
	if userID == "" {
		// Browsers cannot set headers on WebSocket upgrades; accept the token
		// as a query parameter too.
		if token := c.Query("token"); token != "" {
			if id, err := validateToken(h.Cfg.JWTSecret, token); err == nil {
				userID = id
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := &chathub.WebSocketClient{
		ConnID: uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.Event, 256),
	}

	h.Hub.Connect(context.Background(), client)
	client.Run()
}
