package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/vedran77/arena/internal/events"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const readLimit = 1 << 20

// Conn is a client connection to the event stream that keeps a State in
// step with the server. Frames are applied one at a time in arrival order.
type Conn struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.RWMutex
	state  State
	onSync func(events.Envelope, State)

	closed atomic.Bool
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Conn) { c.logger = logger.Named("mirror") }
}

// OnApply registers fn to run after every applied event, on the reading
// goroutine, with the resulting state.
func OnApply(fn func(events.Envelope, State)) Option {
	return func(c *Conn) { c.onSync = fn }
}

// Dial opens the event stream at rawURL for the holder of token and starts
// from seed, usually the GET /me and GET /channels/{id} snapshots.
func Dial(ctx context.Context, rawURL, token string, seed State, opts ...Option) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u.Redacted(), err)
	}
	ws.SetReadLimit(readLimit)

	c := &Conn{conn: ws, logger: zap.NewNop(), state: seed}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the latest state. The value is safe to keep: later events
// never modify it.
func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Run reads and applies events until ctx ends, Close is called or the
// server goes away. A clean shutdown returns nil.
func (c *Conn) Run(ctx context.Context) error {
	for {
		var evt events.Envelope
		if err := wsjson.Read(ctx, c.conn, &evt); err != nil {
			switch {
			case c.closed.Load(), errors.Is(err, context.Canceled):
				return nil
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
				return nil
			}
			return fmt.Errorf("reading event: %w", err)
		}
		c.apply(evt)
	}
}

func (c *Conn) apply(evt events.Envelope) {
	c.mu.Lock()
	next, err := Apply(c.state, evt)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("event skipped", zap.String("event", string(evt.Type)), zap.Error(err))
		return
	}
	c.state = next
	c.mu.Unlock()

	c.logger.Debug("event applied", zap.String("event", string(evt.Type)))
	if c.onSync != nil {
		c.onSync(evt, next)
	}
}

// Send writes a frame to the server, such as a ping.
func (c *Conn) Send(ctx context.Context, evt events.Envelope) error {
	return wsjson.Write(ctx, c.conn, evt)
}

// Close ends the connection. Run returns nil afterwards.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
