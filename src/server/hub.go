package server

import (
	"encoding/json"
	"net/http"
	"time"

	"dex-datafeed/src/datafeed"
	"dex-datafeed/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				client.close()
			}
			s.setConnections(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
			}
			s.setConnections(len(s.clients))

		case update := <-s.broadcast:
			s.stateMutex.Lock()
			s.lastUpdate = time.Now().UnixMilli()
			s.stateMutex.Unlock()

			// Only the client that owns the subscription gets the bar
			owner := s.ownerOf(update.UID)
			if _, ok := s.clients[owner]; ok && !owner.push(update) {
				// Client too slow, disconnect to prevent Hub blocking
				delete(s.clients, owner)
				owner.close()
			}
			s.setConnections(len(s.clients))
		}
	}
}

func (s *FastAPIServer) setConnections(n int) {
	s.stateMutex.Lock()
	s.connections = n
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a bar update for the hub. Never blocks; a full queue drops.
func (s *FastAPIServer) Broadcast(message interface{}) {
	var update *models.MBarUpdate
	switch m := message.(type) {
	case *models.MBarUpdate:
		update = m
	case models.MBarUpdate:
		update = &m
	default:
		s.Logger.Warning("Broadcast expected MBarUpdate, got %T", message)
		return
	}

	select {
	case <-s.quit:
	case s.broadcast <- update:
	default:
		s.Logger.Warning("Broadcast queue full, dropping bar for %s", update.UID)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage runs subscribe/unsubscribe commands from one client.
// It returns false when the client should be disconnected.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) bool {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		return false
	}

	switch cmd.Command {
	case "subscribe":
		client.reply(s.subscribe(client, cmd))
	case "unsubscribe":
		client.reply(s.unsubscribe(client, cmd))
	default:
		client.reply(&models.MStatusMessage{Type: "error", UID: cmd.UID, Message: "unknown command " + cmd.Command})
	}
	return true
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) subscribe(client *Client, cmd models.MSubscribeCommand) *models.MStatusMessage {
	symbol, err := datafeed.SymbolRef(cmd.Symbol)
	if err != nil {
		return &models.MStatusMessage{Type: "error", UID: cmd.UID, Message: err.Error()}
	}

	uid := cmd.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	if !s.claim(uid, client) {
		return &models.MStatusMessage{Type: "error", UID: uid, Message: "uid already in use"}
	}
	_, err = s.feed.SubscribeBars(symbol, cmd.Resolution, uid, func(bar models.MBar) {
		s.Broadcast(&models.MBarUpdate{
			Type:       "bar",
			UID:        uid,
			Symbol:     symbol.FullName(),
			Resolution: cmd.Resolution,
			Bar:        bar,
		})
	})
	if err != nil {
		s.release(uid, client)
		return &models.MStatusMessage{Type: "error", UID: cmd.UID, Message: err.Error()}
	}

	s.Logger.Info("Client subscribed %s to %s/%s", uid, symbol.FullName(), cmd.Resolution)
	return &models.MStatusMessage{Type: "subscribed", UID: uid}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) unsubscribe(client *Client, cmd models.MSubscribeCommand) *models.MStatusMessage {
	if !s.release(cmd.UID, client) {
		return &models.MStatusMessage{Type: "error", UID: cmd.UID, Message: "not subscribed"}
	}
	s.feed.UnsubscribeBars(cmd.UID)
	return &models.MStatusMessage{Type: "unsubscribed", UID: cmd.UID}
}

// -----------------------------------------------------------------------------

// onSubscriptionStopped tells the owning client about a subscription that ended
// without its request: replaced on the same ticker or cancelled over gRPC.
// Uids the client already released are ignored.
func (s *FastAPIServer) onSubscriptionStopped(uid, ticker string, reason datafeed.StopReason) {
	owner := s.disown(uid)
	if owner == nil {
		return
	}

	message := "cancelled"
	if reason == datafeed.StopReplaced {
		message = "replaced by a newer subscription on " + ticker
	}
	owner.reply(&models.MStatusMessage{Type: "unsubscribed", UID: uid, Message: message})
	s.Logger.Info("Subscription %s ended: %s", uid, message)
}
