package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	MaxMessageSize int64
	// MessagesPerSecond and Burst bound inbound frames per connection.
	MessagesPerSecond float64
	Burst             int
}

func DefaultOptions() Options {
	return Options{
		PingInterval:      30 * time.Second,
		WriteWait:         10 * time.Second,
		SendBuffer:        256,
		MaxMessageSize:    4096,
		MessagesPerSecond: 5,
		Burst:             10,
	}
}

// Client is a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	opts   Options

	// send is closed by the hub when the client is unregistered.
	send     chan []byte
	kicked   chan struct{}
	kickOnce sync.Once

	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, opts Options) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		opts:    opts,
		send:    make(chan []byte, opts.SendBuffer),
		kicked:  make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		logger:  hub.logger.Named("client").With(zap.String("user_id", userID.String())),
		metrics: hub.metrics,
	}
}

// kick asks WritePump to close the connection. Safe to call repeatedly.
func (c *Client) kick() {
	c.kickOnce.Do(func() { close(c.kicked) })
}

func (c *Client) isKicked() bool {
	select {
	case <-c.kicked:
		return true
	default:
		return false
	}
}

// ReadPump reads control frames until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context) {
	if c.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageSize)
	}

	for {
		var frame events.Envelope
		err := wsjson.Read(ctx, c.conn, &frame)
		if err != nil {
			var syntaxErr *json.SyntaxError
			switch {
			case errors.As(err, &syntaxErr):
				c.sendError(CodeInvalidFrame, "frame is not valid JSON")
				continue
			case websocket.CloseStatus(err) != -1:
				c.logger.Debug("client closed connection")
			case errors.Is(err, context.Canceled):
			default:
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.metrics.InboundRateLimited()
			c.sendError(CodeRateLimited, "slow down")
			continue
		}
		c.handleFrame(frame)
	}
}

// WritePump writes queued events and keeps the connection alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, c.opts.WriteWait)
			err := c.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, c.opts.WriteWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}

		case <-c.kicked:
			c.conn.Close(websocket.StatusPolicyViolation, "too slow")
			return

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleFrame(frame events.Envelope) {
	switch frame.Type {
	case TypePing:
		c.reply(TypePong, nil)
	default:
		c.sendError(CodeUnknownEvent, "unknown event type: "+string(frame.Type))
	}
}

func (c *Client) sendError(code, message string) {
	c.reply(TypeError, ErrorPayload{Code: code, Message: message})
}

// reply answers this connection only, skipping the hub. Only the read side
// calls it, and the hub closes send after the read side has returned.
func (c *Client) reply(t events.Type, payload any) {
	var (
		evt events.Envelope
		err error
	)
	if payload == nil {
		evt = events.Envelope{Type: t, Timestamp: time.Now().UnixMilli()}
	} else if evt, err = events.New(t, nil, payload); err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}
