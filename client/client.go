// Package client connects a drawing session to the relay hub over WebSocket.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"drawing-board/internal/logx"
	"drawing-board/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var (
	ErrClosed = errors.New("client: connection closed")
	ErrBusy   = errors.New("client: send buffer full")
)

// Client is one participant's connection to the hub. Outgoing events are
// queued and written by a single goroutine in order.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu           sync.Mutex
	send         chan []byte
	closed       bool
	participants []string

	done      chan struct{}
	closeOnce sync.Once
}

type options struct {
	header http.Header
	dialer *websocket.Dialer
	logger *zap.Logger
}

type Option func(*options)

// WithHeader sets extra handshake headers, e.g. Origin.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Dial connects to the hub at url (ws:// or wss://) and starts the write pump.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := options{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := o.dialer.DialContext(ctx, url, o.header)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn: conn,
		log:  logx.OrNop(o.logger),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c, nil
}

// SendSegment queues a segment for the hub.
func (c *Client) SendSegment(seg protocol.Segment) error {
	return c.enqueue(seg)
}

// SendClear queues a clear for the hub.
func (c *Client) SendClear() error {
	return c.enqueue(protocol.Clear{})
}

func (c *Client) enqueue(ev protocol.Event) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBusy
	}
}

// Participants returns the ids from the latest participant list.
func (c *Client) Participants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.participants))
	copy(out, c.participants)
	return out
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run reads events from the hub and passes segments and clears to apply. Bad
// messages are logged and skipped. Run returns when the connection drops, the
// context ends or Close is called; the client stops sending afterwards.
func (c *Client) Run(ctx context.Context, apply func(protocol.Event)) error {
	defer c.shutdown()

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}

		ev, err := protocol.Decode(raw)
		if err != nil {
			c.log.Debug("discarding message", zap.Error(err))
			continue
		}

		switch e := ev.(type) {
		case protocol.ParticipantList:
			c.mu.Lock()
			c.participants = e.IDs
			c.mu.Unlock()
		default:
			if apply != nil {
				apply(e)
			}
		}
	}
}

// Close sends a close frame and disconnects.
func (c *Client) Close() error {
	c.markClosed()

	select {
	case <-c.done:
	case <-time.After(writeWait):
		c.conn.Close()
	}
	return nil
}

// shutdown marks the client closed after the read side ends.
func (c *Client) shutdown() {
	c.markClosed()
	c.conn.Close()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.closeOnce.Do(func() { close(c.done) })
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn("write failed, stop sending", zap.Error(err))
				c.markClosed()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}
		}
	}
}

func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
