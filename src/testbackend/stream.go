package testbackend

import (
	"sync"
	"time"

	"trade-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// streamConn serializes writes to one price stream client.
type streamConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed chan struct{}
	once   sync.Once
}

func (sc *streamConn) write(data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return sc.conn.WriteMessage(websocket.TextMessage, data)
}

func (sc *streamConn) close() {
	sc.once.Do(func() {
		close(sc.closed)
		sc.conn.Close()
	})
}

// -----------------------------------------------------------------------------

type tickMessage struct {
	Type      string   `json:"type"`
	Symbol    string   `json:"symbol"`
	Last      *float64 `json:"last"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Change24h *float64 `json:"change24h,omitempty"`
	Ts        int64    `json:"ts,omitempty"`
}

func encodeTick(t models.MTick) []byte {
	data, _ := json.Marshal(tickMessage{
		Type:      models.StreamTypeTick,
		Symbol:    t.Symbol,
		Last:      t.Last,
		Bid:       t.Bid,
		Ask:       t.Ask,
		Change24h: t.Change24h,
		Ts:        t.Timestamp,
	})
	return data
}

// -----------------------------------------------------------------------------

// handleStream acknowledges each subscribe and then plays the scripted ticks.
func (b *Backend) handleStream(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.Logger.Warning("stream upgrade failed: %v", err)
		return
	}

	sc := &streamConn{conn: conn, closed: make(chan struct{})}
	b.mu.Lock()
	b.streams[sc] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.streams, sc)
		b.mu.Unlock()
		sc.close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd models.MSubscribeCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type != models.StreamTypeSubscribe {
			continue
		}

		b.mu.Lock()
		b.subscriptions = append(b.subscriptions, append([]string{}, cmd.Symbols...))
		b.mu.Unlock()

		ack, _ := json.Marshal(map[string]interface{}{
			"type":    models.StreamTypeSubscribed,
			"symbols": cmd.Symbols,
		})
		if err := sc.write(ack); err != nil {
			return
		}
		go b.playTicks(sc)
	}
}

// -----------------------------------------------------------------------------

func (b *Backend) playTicks(sc *streamConn) {
	for _, tick := range b.Ticks {
		select {
		case <-sc.closed:
			return
		case <-time.After(b.TickInterval):
		}
		if err := sc.write(encodeTick(tick)); err != nil {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// Push sends a raw frame to every open stream.
func (b *Backend) Push(data []byte) {
	for _, sc := range b.openStreams() {
		sc.write(data)
	}
}

// PushTick sends one tick to every open stream.
func (b *Backend) PushTick(t models.MTick) {
	b.Push(encodeTick(t))
}

// DropStreams closes every open stream connection.
func (b *Backend) DropStreams() {
	for _, sc := range b.openStreams() {
		sc.close()
	}
}

// StreamCount returns the number of open stream connections.
func (b *Backend) StreamCount() int {
	return len(b.openStreams())
}

func (b *Backend) openStreams() []*streamConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*streamConn, 0, len(b.streams))
	for sc := range b.streams {
		out = append(out, sc)
	}
	return out
}
