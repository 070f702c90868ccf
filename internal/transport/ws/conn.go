package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/chat-service/internal/chat"
)

var errConnClosed = errors.New("ws: connection closed")
var errSendBufferFull = errors.New("ws: send buffer full")

// wsConn adapts a gorilla connection to chat.Conn. Outbound events are
// enqueued to a buffered channel drained by writeLoop, so Send never blocks
// inside the dispatcher's critical sections. A client too slow to drain its
// buffer is closed rather than allowed to stall a room.
type wsConn struct {
	conn *websocket.Conn

	send      chan chat.Event
	closed    chan struct{}
	closeOnce sync.Once

	writeWait time.Duration
}

func newWsConn(c *websocket.Conn, sendBuffer int, writeWait time.Duration) *wsConn {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &wsConn{
		conn:      c,
		send:      make(chan chat.Event, sendBuffer),
		closed:    make(chan struct{}),
		writeWait: writeWait,
	}
}

func (c *wsConn) Send(ev chat.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- ev:
		return nil
	default:
		// Slow consumer; drop the connection, its read loop cleans up.
		_ = c.Close()
		return errSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// writeJSONNow bypasses the queue for the pre-registration path (the
// unauthorized status event).
func (c *wsConn) writeJSONNow(ev chat.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteJSON(ev)
}

// writeLoop owns all writes to the underlying connection.
func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.writeWait))
			return
		}
	}
}
