package signaling

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

// fakeConn records every payload it is sent.
type fakeConn struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	done    chan struct{}
	once    sync.Once
	blocked bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString(), done: make(chan struct{})}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	if c.blocked {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrConnClosed
		}
	}
	c.mu.Lock()
	c.frames = append(c.frames, payload)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() { c.once.Do(func() { close(c.done) }) }

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) messages() []*domain.SignalMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.SignalMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var msg domain.SignalMessage
		if err := json.Unmarshal(f, &msg); err == nil {
			out = append(out, &msg)
		}
	}
	return out
}
