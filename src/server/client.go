package server

import (
	"sync"
	"time"

	"dex-datafeed/src/models"

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
	sendBuffer     = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub  *FastAPIServer
	conn *websocket.Conn
	send chan interface{}

	mu     sync.Mutex
	closed bool
}

func newClient(hub *FastAPIServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, sendBuffer),
	}
}

// -----------------------------------------------------------------------------

// push queues a message without blocking. False if the buffer is full or closed.
func (c *Client) push(message interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) reply(msg *models.MStatusMessage) {
	if !c.push(msg) {
		c.hub.Logger.Warning("Dropped %s reply for %s", msg.Type, msg.UID)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// -----------------------------------------------------------------------------
// Subscription ownership
// -----------------------------------------------------------------------------

// claim makes client the owner of uid. False if any client already holds it.
func (s *FastAPIServer) claim(uid string, client *Client) bool {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	if _, taken := s.owners[uid]; taken {
		return false
	}
	s.owners[uid] = client
	return true
}

// release drops uid only when client owns it.
func (s *FastAPIServer) release(uid string, client *Client) bool {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	if s.owners[uid] != client {
		return false
	}
	delete(s.owners, uid)
	return true
}

// releaseAll drops every uid of client and returns them.
func (s *FastAPIServer) releaseAll(client *Client) []string {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	var out []string
	for uid, owner := range s.owners {
		if owner == client {
			delete(s.owners, uid)
			out = append(out, uid)
		}
	}
	return out
}

// disown drops uid whoever holds it and returns the former owner.
func (s *FastAPIServer) disown(uid string) *Client {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	owner, ok := s.owners[uid]
	if !ok {
		return nil
	}
	delete(s.owners, uid)
	return owner
}

func (s *FastAPIServer) ownerOf(uid string) *Client {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()
	return s.owners[uid]
}

func (c *Client) owns(uid string) bool {
	return c.hub.ownerOf(uid) == c
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()

		// live polling for this client stops with the connection
		for _, uid := range c.hub.releaseAll(c) {
			c.hub.feed.UnsubscribeBars(uid)
		}
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
		if !c.hub.HandleClientMessage(c, message) {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Write JSON message
			if err := c.conn.WriteJSON(message); err != nil {
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
