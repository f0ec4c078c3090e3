package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/consult_rooms/lib/logger/sl"
)

var ErrConnClosed = errors.New("connection closed")

// Conn is a live handle to one participant's signaling channel.
type Conn interface {
	ID() string
	// Send queues payload for delivery. It fails once the connection is
	// closed or ctx is done before the payload could be queued.
	Send(ctx context.Context, payload []byte) error
	Close()
	Done() <-chan struct{}
}

type ConnOptions struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o ConnOptions) withDefaults() ConnOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	return o
}

// WSConn adapts a gorilla websocket to Conn. A single writePump goroutine
// owns all data writes; reads happen on the caller's goroutine.
type WSConn struct {
	id   string
	ws   *websocket.Conn
	opts ConnOptions
	log  *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSConn wraps ws. An empty id is generated.
func NewWSConn(ws *websocket.Conn, id string, opts ConnOptions, log *slog.Logger) *WSConn {
	if id == "" {
		id = uuid.NewString()
	}
	opts = opts.withDefaults()
	c := &WSConn{
		id:   id,
		ws:   ws,
		opts: opts,
		log:  log,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}

	ws.SetReadLimit(opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	return c
}

func (c *WSConn) ID() string {
	return c.id
}

func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

func (c *WSConn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the connection. Payloads queued before Close are still
// flushed by the write pump. Safe to call more than once and from any
// goroutine.
func (c *WSConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// unblocks the reader even if the write pump is gone
		time.AfterFunc(c.opts.WriteWait, func() { _ = c.ws.Close() })
	})
}

// Read blocks for the next text frame from the peer.
func (c *WSConn) Read() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WritePump drains the send queue into the websocket and keeps the peer
// alive with pings until the connection closes.
func (c *WSConn) WritePump() {
	pingPeriod := (c.opts.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug("websocket write failed", slog.String("conn_id", c.id), sl.Err(err))
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is still queued, then the close frame.
func (c *WSConn) flush() {
	for {
		select {
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *WSConn) write(kind int, payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.ws.WriteMessage(kind, payload)
}
