package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"trade-sync/src/interfaces"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
)

// -----------------------------------------------------------------------------
// WebsocketDialer opens gorilla websocket connections.
// -----------------------------------------------------------------------------

type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// -----------------------------------------------------------------------------

func NewWebsocketDialer(handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		Header: http.Header{},
	}
}

// -----------------------------------------------------------------------------

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (interfaces.IStreamConn, error) {
	conn, _, err := d.Dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	return newWebsocketConn(conn), nil
}

// -----------------------------------------------------------------------------
// websocketConn keeps the connection alive with pings and treats a missing
// pong as a dead connection.
// -----------------------------------------------------------------------------

type websocketConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newWebsocketConn(conn *websocket.Conn) *websocketConn {
	c := &websocketConn{
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.pingPump()
	return c
}

// -----------------------------------------------------------------------------

func (c *websocketConn) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (c *websocketConn) ReadMessage() ([]byte, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// -----------------------------------------------------------------------------

func (c *websocketConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// -----------------------------------------------------------------------------

func (c *websocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}
