package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kevinbdx35/rocket-telemetry/pkg/buffer"
)

const (
	maxIncomingMessage = 4096
	writeBatch         = 32
)

// Disconnect reasons used in metrics and logs.
const (
	reasonClientClosed = "client_closed"
	reasonReadError    = "read_error"
	reasonWriteError   = "write_error"
	reasonShutdown     = "shutdown"
)

// client is one connected browser. Only writePump writes to conn.
type client struct {
	id          uint64
	conn        *websocket.Conn
	connectedAt time.Time
	outbox      buffer.Buffer[[]byte]
	wake        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	reason      atomic.Value // string

	sent    atomic.Int64
	dropped atomic.Int64
}

func (w *Output) newClient(conn *websocket.Conn) (*client, error) {
	c := &client{
		id:          w.nextClientID.Add(1),
		conn:        conn,
		connectedAt: w.now(),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	outbox, err := buffer.NewCircularBuffer[[]byte](w.cfg.ClientBuffer,
		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
		buffer.WithDropCallback[[]byte](func([]byte) {
			c.dropped.Add(1)
			w.dropped.Add(1)
			w.wsMetrics.recordDrop()
		}),
	)
	if err != nil {
		return nil, err
	}
	c.outbox = outbox
	return c, nil
}

// enqueue queues data for the writer. It never blocks.
func (c *client) enqueue(data []byte) bool {
	if c.closed() {
		return false
	}
	if err := c.outbox.Write(data); err != nil {
		return false
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// close marks the client done. The first reason wins.
func (c *client) close(reason string) bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.reason.Store(reason)
		close(c.done)
		_ = c.outbox.Close()
	})
	return first
}

func (c *client) closeReason() string {
	if r, ok := c.reason.Load().(string); ok {
		return r
	}
	return ""
}

// readPump services control frames and notices disconnects.
func (w *Output) readPump(c *client) {
	defer w.wg.Done()
	defer w.removeClient(c, reasonReadError)

	c.conn.SetReadLimit(maxIncomingMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.removeClient(c, reasonClientClosed)
			} else if !c.closed() {
				w.logger.Debug("Client read failed", "client", c.id, "error", err)
			}
			return
		}
	}
}

// writePump drains the outbox and pings the client.
func (w *Output) writePump(c *client) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.wake:
			if err := w.flush(c); err != nil {
				w.logger.Debug("Client write failed", "client", c.id, "error", err)
				w.removeClient(c, reasonWriteError)
				return
			}
		case <-ticker.C:
			if err := w.write(c, websocket.PingMessage, nil); err != nil {
				w.removeClient(c, reasonWriteError)
				return
			}
		case <-c.done:
			deadline := time.Now().Add(w.cfg.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			if c.closeReason() == reasonShutdown {
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			}
			_ = c.conn.Close()
			return
		}
	}
}

func (w *Output) flush(c *client) error {
	for {
		batch := c.outbox.ReadBatch(writeBatch)
		if len(batch) == 0 {
			return nil
		}
		for _, data := range batch {
			if err := w.write(c, websocket.TextMessage, data); err != nil {
				return err
			}
			c.sent.Add(1)
			w.wsMetrics.recordSent(len(data))
		}
	}
}

func (w *Output) write(c *client, messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}
