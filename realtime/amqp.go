package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"food-delivery/panel/models"
)

// AMQPChannel is a chat.Channel fed by a RabbitMQ queue, for deployments
// where the backend publishes chat messages to a broker instead of a
// WebSocket hub.
type AMQPChannel struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	onMsg   func(models.Message)
	onState func(bool)
	closed  bool
	closeCh chan struct{}
}

func NewAMQPChannel(url, queue string) *AMQPChannel {
	return &AMQPChannel{
		url:     url,
		queue:   queue,
		closeCh: make(chan struct{}),
	}
}

func (c *AMQPChannel) OnMessage(fn func(models.Message)) {
	c.mu.Lock()
	c.onMsg = fn
	c.mu.Unlock()
}

func (c *AMQPChannel) OnStateChange(fn func(bool)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *AMQPChannel) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.consume(conn); err != nil {
		conn.Close()
		return err
	}
	c.setState(true)

	go c.watch(ctx, conn)
	return nil
}

func (c *AMQPChannel) consume(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		defer ch.Close()
		for d := range msgs {
			var msg models.Message
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				log.Printf("realtime: dropping malformed chat message: %v", err)
				continue
			}
			c.deliver(msg)
		}
	}()
	return nil
}

// watch reconnects with a fixed delay whenever the broker connection drops,
// until Close is called.
func (c *AMQPChannel) watch(ctx context.Context, conn *amqp.Connection) {
	for {
		select {
		case <-conn.NotifyClose(make(chan *amqp.Error)):
		case <-c.closeCh:
			return
		case <-ctx.Done():
			return
		}
		c.setState(false)
		log.Printf("realtime: rabbitmq connection lost, reconnecting in %s...", reconnectDelay)

		for {
			select {
			case <-c.closeCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}

			next, err := amqp.Dial(c.url)
			if err != nil {
				log.Printf("realtime: rabbitmq redial failed: %v", err)
				continue
			}
			if err := c.consume(next); err != nil {
				log.Printf("realtime: rabbitmq consume failed: %v", err)
				next.Close()
				continue
			}
			c.mu.Lock()
			c.conn = next
			c.mu.Unlock()
			c.setState(true)
			conn = next
			break
		}
	}
}

func (c *AMQPChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closeCh)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *AMQPChannel) deliver(msg models.Message) {
	c.mu.Lock()
	fn := c.onMsg
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (c *AMQPChannel) setState(connected bool) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}
