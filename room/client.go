package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const pingPeriod = 30 * time.Second

// Client is one live connection. Its outbox is written and closed only by the
// actor that registered it.
type Client struct {
	id      string
	conn    Connection
	outbox  chan []byte
	limiter *rate.Limiter
	actor   *Actor
	closed  bool
}

func NewClient(conn Connection, outboxSize int, perSecond float64, burst int) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		outbox:  make(chan []byte, outboxSize),
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues data without blocking. False means the client is gone or too
// slow to keep up.
func (c *Client) Send(data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.outbox)
}

// ReadPump forwards inbound frames to the actor until the connection fails.
func (c *Client) ReadPump() {
	ctx := context.Background()
	for {
		data, err := c.conn.Read()
		if err != nil {
			_ = c.actor.post(ctx, disconnect{client: c})
			return
		}
		ev := inbound{client: c, data: data}
		if !c.limiter.Allow() {
			ev = inbound{client: c, err: ErrRateLimited}
		}
		if err := c.actor.post(ctx, ev); err != nil {
			return
		}
	}
}

// WritePump drains the outbox and keeps the connection alive with pings.
// The connection is closed once the outbox is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close(CloseNormal, "")

	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.conn.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}
