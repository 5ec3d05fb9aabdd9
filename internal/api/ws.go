//
//
package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lng-monitor/relay/internal/telemetry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Pending replies (pong) per connection.
	replyBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
	// Any origin may connect, as with the HTTP API's CORS policy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn is the middleman between one websocket connection and the hub.
type wsConn struct {
	conn     *websocket.Conn
	hub      HubPort
	consumer *telemetry.Consumer
	metrics  MetricsPort

	// Replies produced by the read pump, written by the write pump
	replies chan telemetry.Message
}

// handleWebSocket handles GET /ws
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		WriteError(w, http.StatusServiceUnavailable, MessageUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	consumer, err := s.hub.Attach()
	if err != nil {
		log.Printf("api: websocket attach failed: %v", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := &wsConn{
		conn:     conn,
		hub:      s.hub,
		consumer: consumer,
		metrics:  s.metrics,
		replies:  make(chan telemetry.Message, replyBuffer),
	}

	log.Printf("api: websocket %s connected from %s", consumer.ID, r.RemoteAddr)

	go c.writePump()
	c.readPump()
}

// readPump feeds inbound messages to the hub. It detaches the consumer when
// the socket fails or the peer closes it.
func (c *wsConn) readPump() {
	defer func() {
		c.hub.Detach(c.consumer)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("api: websocket %s read error: %v", c.consumer.ID, err)
			}
			return
		}

		reply, err := c.hub.HandleMessage(c.consumer, raw)
		if err != nil {
			log.Printf("api: websocket %s: %v", c.consumer.ID, err)
			if c.metrics != nil {
				c.metrics.MalformedMessage()
			}
			continue
		}
		if reply == nil {
			continue
		}

		select {
		case c.replies <- *reply:
		case <-c.consumer.Done():
			return
		default:
			log.Printf("api: websocket %s: reply dropped, peer not reading", c.consumer.ID)
		}
	}
}

// writePump is the only writer to the socket. It ends when the hub removes
// the consumer or a write fails.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.consumer.Events():
			if err := c.write(msg); err != nil {
				log.Printf("api: websocket %s write failed: %v", c.consumer.ID, err)
				return
			}
		case msg := <-c.replies:
			if err := c.write(msg); err != nil {
				log.Printf("api: websocket %s write failed: %v", c.consumer.ID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.consumer.Done():
			code, text := closeReason(c.consumer.Err())
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, text),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *wsConn) write(msg telemetry.Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// closeReason maps the hub's removal reason to a close frame.
func closeReason(err error) (int, string) {
	switch {
	case err == nil:
		return websocket.CloseNormalClosure, ""
	case errors.Is(err, telemetry.ErrHubStopped):
		return websocket.CloseGoingAway, "server shutting down"
	default:
		return websocket.CloseTryAgainLater, "consumer too slow"
	}
}
