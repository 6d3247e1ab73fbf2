package realtime

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var ErrConnClosed = errors.New("websocket connection closed")

// Conn is a websocket peer. Writes are serialized and bounded by a deadline.
type Conn struct {
	id string
	ws *websocket.Conn

	mu     sync.Mutex
	closed atomic.Bool
	done   chan struct{}
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:   uuid.Must(uuid.NewV4()).String(),
		ws:   ws,
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(writeWait)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

// Send writes msg as a JSON text frame. The write gives up at the earlier of
// the ctx deadline and writeWait; a connection whose write failed is torn
// down.
func (c *Conn) Send(ctx context.Context, msg any) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	c.mu.Lock()
	err := c.ws.SetWriteDeadline(c.deadline(ctx))
	if err == nil {
		err = c.ws.WriteJSON(msg)
	}
	c.mu.Unlock()

	var netErr net.Error
	if errors.As(err, &netErr) {
		c.abort()
	}
	return err
}

// abort drops the connection without a close handshake.
func (c *Conn) abort() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	_ = c.ws.Close()
}

// Close sends a close frame with code and tears the connection down.
func (c *Conn) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.ws.Close()
}

// ReadLoop hands every text frame to handle until the peer goes away or
// ctx is done. It keeps the connection alive with pings meanwhile.
func (c *Conn) ReadLoop(ctx context.Context, handle func([]byte)) error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.keepAlive(ctx)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind == websocket.TextMessage {
			handle(data)
		}
	}
}

func (c *Conn) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
