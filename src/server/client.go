package server

import (
	"encoding/json"
	"time"

	"market-sync/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *BridgeServer
	conn *websocket.Conn
	send chan *models.MStreamPayload
}

// -----------------------------------------------------------------------------
// readPump - handles incoming subscribe/unsubscribe commands.
// Acts as a watchdog for the connection.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.Logger.Info("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.handleCommand(message)
	}
}

// -----------------------------------------------------------------------------

func (c *Client) handleCommand(message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.hub.Logger.Info("Failed to parse client command: %v", err)
		return
	}

	switch cmd.Command {
	case "subscribe":
		var err error
		if cmd.Timeframe != "" {
			err = c.hub.router.SubscribeForTimeframe(cmd.Symbols, cmd.Timeframe)
		} else {
			err = c.hub.router.Subscribe(cmd.Symbols)
		}
		if err != nil {
			c.hub.Logger.Error("Subscribe failed for %v: %v", cmd.Symbols, err)
		}

	case "unsubscribe":
		if cmd.Timeframe != "" {
			c.hub.router.UnsubscribeTimeframe(cmd.Symbols, cmd.Timeframe)
		} else {
			c.hub.router.Unsubscribe(cmd.Symbols)
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends payloads to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(payload); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
