package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"food-delivery/panel/models"
)

const reconnectDelay = 5 * time.Second

// WebSocketChannel is a chat.Channel over a persistent WebSocket to the
// hosted pub/sub endpoint. It reconnects with a fixed delay until Close.
type WebSocketChannel struct {
	url string

	mu       sync.Mutex
	conn     *websocket.Conn
	onMsg    func(models.Message)
	onState  func(bool)
	closed   bool
	closedCh chan struct{}
}

func NewWebSocketChannel(url string) *WebSocketChannel {
	return &WebSocketChannel{
		url:      url,
		closedCh: make(chan struct{}),
	}
}

func (c *WebSocketChannel) OnMessage(fn func(models.Message)) {
	c.mu.Lock()
	c.onMsg = fn
	c.mu.Unlock()
}

func (c *WebSocketChannel) OnStateChange(fn func(bool)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// Connect dials the endpoint and starts the read loop. The first dial is
// synchronous so the caller learns about a bad URL immediately; later
// reconnects happen in the background.
func (c *WebSocketChannel) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.setConn(conn)
	c.setState(true)

	go c.readLoop(ctx, conn)
	return nil
}

func (c *WebSocketChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		for {
			var msg models.Message
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			c.deliver(msg)
		}
		c.setState(false)
		conn.Close()

		if c.isClosed() || ctx.Err() != nil {
			return
		}

		log.Printf("realtime: websocket connection lost, reconnecting in %s...", reconnectDelay)
		var err error
		conn, err = c.redial(ctx)
		if err != nil {
			return
		}
		c.setConn(conn)
		c.setState(true)
	}
}

func (c *WebSocketChannel) redial(ctx context.Context) (*websocket.Conn, error) {
	for {
		select {
		case <-c.closedCh:
			return nil, context.Canceled
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reconnectDelay):
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}
		log.Printf("realtime: websocket redial failed: %v", err)
	}
}

// Close tears the connection down for good; no reconnect follows.
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedCh)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *WebSocketChannel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *WebSocketChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *WebSocketChannel) deliver(msg models.Message) {
	c.mu.Lock()
	fn := c.onMsg
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *WebSocketChannel) setState(connected bool) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}
