package ws

import (
	"context"
	"fmt"
	"sync"

	"FinWatch/internal/domain/models"
	"FinWatch/pkg/logger"
)

// view fans one symbol's frames out to its attached clients. The last hello
// and result frames are replayed to late joiners.
type view struct {
	hub    *Hub
	symbol string
	cfg    models.PollConfig

	mu       sync.Mutex
	clients  map[*client]struct{}
	last     []byte
	attached bool
	detached bool
	closed   bool
}

func (v *view) Render(ctx context.Context, result *models.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("render %s: nil result", v.symbol)
	}
	b, err := encode(Frame{Type: FrameResult, Symbol: v.symbol, Data: result})
	if err != nil {
		return fmt.Errorf("render %s: %w", v.symbol, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return fmt.Errorf("render %s: view closed", v.symbol)
	}
	v.last = b
	v.sendLocked(b)
	return nil
}

// IsAlive is false after Close, or after the last client left when the hub
// closes views on last detach.
func (v *view) IsAlive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	return !(v.hub.closeOnLastDetach && v.detached && len(v.clients) == 0)
}

func (v *view) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	clients := v.clients
	v.clients = make(map[*client]struct{})
	v.mu.Unlock()

	for c := range clients {
		c.stop()
	}
	v.hub.forget(v)
	v.hub.log.Debug("ws: view closed", logger.String("symbol", v.symbol), logger.Int("clients", len(clients)))
	return nil
}

func (v *view) attach(c *client) bool {
	hello, _ := encode(Frame{Type: FrameHello, Symbol: v.symbol, Data: v.cfg})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	v.clients[c] = struct{}{}
	v.attached = true
	c.enqueue(hello)
	if v.last != nil {
		c.enqueue(v.last)
	}
	return true
}

func (v *view) detach(c *client) {
	v.mu.Lock()
	if _, ok := v.clients[c]; ok {
		delete(v.clients, c)
		if v.attached {
			v.detached = true
		}
	}
	remaining := len(v.clients)
	v.mu.Unlock()

	c.stop()
	v.hub.log.Debug("ws: client detached", logger.String("symbol", v.symbol), logger.Int("remaining", remaining))
}

func (v *view) broadcast(f Frame) {
	b, err := encode(f)
	if err != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.sendLocked(b)
	}
}

// sendLocked drops clients whose buffer is full.
func (v *view) sendLocked(b []byte) {
	for c := range v.clients {
		if !c.enqueue(b) {
			delete(v.clients, c)
			v.detached = true
			c.stop()
			v.hub.log.Warn("ws: dropping slow client", logger.String("symbol", v.symbol))
		}
	}
}
