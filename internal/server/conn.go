package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	sendBufferSize   = 64
	closeGracePeriod = time.Second
)

// wsConn adapts one gorilla websocket connection to sessions.Conn. All
// writes funnel through a buffered channel and a single writer goroutine;
// Send never blocks the caller. A full buffer means the client is too slow
// and the message is dropped.
type wsConn struct {
	ws     *websocket.Conn
	logger *log.Logger

	out       chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newWSConn(ws *websocket.Conn, logger *log.Logger) *wsConn {
	c := &wsConn{
		ws:     ws,
		logger: logger,
		out:    make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send implements sessions.Conn.
func (c *wsConn) Send(msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Printf("ws: marshal outbound message: %v", err)
		return false
	}
	select {
	case <-c.closed:
		return false
	case c.out <- data:
		return true
	default:
		return false
	}
}

// Close implements sessions.Conn. It pushes a close frame and tears the
// socket down; the read loop then unblocks with an error.
func (c *wsConn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		time.AfterFunc(closeGracePeriod, func() { c.ws.Close() })
	})
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		}
	}
}
