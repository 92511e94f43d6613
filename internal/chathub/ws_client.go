package chathub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"fadechat/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements the chathub.Client interface over one
// gorilla/websocket connection.
type WebSocketClient struct {
	ConnID string
	UserID string // "" for connections without a resolved identity
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan models.Event

	closeOnce sync.Once
}

func (c *WebSocketClient) GetConnectionID() string             { return c.ConnID }
func (c *WebSocketClient) GetUserID() string                   { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the pumps for this connection.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the send channel, which stops the write pump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// readPump reads command frames from the socket and dispatches them on this
// goroutine. Unregistering from the hub happens here, so a mid-operation
// disconnect only ever races fanout, never registry mutation.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Disconnect(context.Background(), c)
		c.Conn.Close()
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.Log.Warn("websocket read error", "conn", c.ConnID, "err", err)
			}
			break
		}

		var env CommandEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			c.Hub.Log.Warn("dropping malformed frame", "conn", c.ConnID, "err", err)
			continue
		}

		cmd, err := DecodeCommand(env)
		if err != nil {
			c.Hub.Log.Warn("dropping unknown command", "conn", c.ConnID, "action", env.Action, "err", err)
			continue
		}

		c.Hub.Dispatch(context.Background(), c, cmd)
	}
}

// writePump drains the send channel into the socket and keeps the connection
// alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub side; tell the peer and stop.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				c.Hub.Log.Error("failed to encode event", "conn", c.ConnID, "event", event.Event, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
