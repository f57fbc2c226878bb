package server

import (
	"net/http"
	"time"

	"trade-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	defer close(s.hubDone)

	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int32(len(s.clients)))
			// Send full state on connect
			client.send <- s.snapshotEvent()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connections.Store(int32(len(s.clients)))
			}

		case event := <-s.broadcast:
			for client := range s.clients {
				if event.Type == models.EventPrice && !client.limiter.Allow() {
					s.dropped.Add(1)
					continue
				}
				select {
				case client.send <- event:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
					s.connections.Store(int32(len(s.clients)))
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) snapshotEvent() models.MDashboardEvent {
	return models.MDashboardEvent{
		Type:      models.EventSnapshot,
		Payload:   s.Session.Snapshot(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

// publish queues an event for every client. Events are dropped when the
// queue is full so emitters never block on slow dashboards.
func (s *FastAPIServer) publish(eventType string, payload interface{}) {
	if !s.hubStarted.Load() {
		return
	}
	event := models.MDashboardEvent{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case s.broadcast <- event:
	default:
		s.dropped.Add(1)
	}
}

// -----------------------------------------------------------------------------
// IEventSink Implementation
// -----------------------------------------------------------------------------

func (s *FastAPIServer) OnPriceChanged(change models.MPriceChange) {
	s.publish(models.EventPrice, change)
}

func (s *FastAPIServer) OnConnectionStateChanged(state models.MConnectionState) {
	s.publish(models.EventConnection, gin.H{"state": state})
}

func (s *FastAPIServer) OnConfirmationOpened(c models.MConfirmation) {
	s.publish(models.EventConfirmation, c)
}

func (s *FastAPIServer) OnConfirmationUpdated(c models.MConfirmation) {
	s.publish(models.EventConfirmation, c)
}

func (s *FastAPIServer) OnCommandResult(outcome models.MCommandOutcome) {
	s.publish(models.EventCommand, outcome)
}

func (s *FastAPIServer) OnAccountUpdated(snapshot models.MAccountSnapshot) {
	s.publish(models.EventAccount, snapshot)
}

func (s *FastAPIServer) OnTradingModeChanged(state models.MTradingModeState) {
	s.publish(models.EventTradingMode, state)
}

func (s *FastAPIServer) OnError(source string, err error) {
	s.publish(models.EventError, gin.H{"source": source, "message": err.Error()})
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

	client := &Client{
		hub:     s,
		conn:    conn,
		send:    make(chan models.MDashboardEvent, 256),
		limiter: s.newLimiter(),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

type clientMessage struct {
	Type string `json:"type"`
}

// HandleClientMessage answers {"type":"snapshot"} with the full state. Other
// messages are ignored.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.Logger.Info("Failed to parse client message: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if msg.Type != models.EventSnapshot {
		return
	}

	select {
	case client.send <- s.snapshotEvent():
	default:
	}
}
