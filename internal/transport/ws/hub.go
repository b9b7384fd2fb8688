package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/metrics"
	"go.uber.org/zap"
)

// ErrHubClosed is returned once Run has exited.
var ErrHubClosed = errors.New("ws hub closed")

// Hub owns every live connection and fans events out to them. A user may
// hold several connections; all of them receive the user's events.
type Hub struct {
	// clients maps userID → that user's connections. Only Run touches it.
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan registration
	unregister chan registration
	deliver    chan *delivery

	done    chan struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type registration struct {
	client *Client
	// reply reports whether this was the user's first (register) or last
	// (unregister) connection.
	reply chan bool
}

type delivery struct {
	userIDs   []uuid.UUID
	all       bool
	eventType events.Type
	data      []byte
}

func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan registration),
		unregister: make(chan registration),
		deliver:    make(chan *delivery, 256),
		done:       make(chan struct{}),
		logger:     logger.Named("ws.hub"),
		metrics:    m,
	}
}

// Run is the hub's event loop. All fan-out happens on this goroutine, so
// every connection sees events in the order they were enqueued.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case reg := <-h.register:
			c := reg.client
			conns := h.clients[c.userID]
			if conns == nil {
				conns = make(map[*Client]struct{})
				h.clients[c.userID] = conns
			}
			conns[c] = struct{}{}
			h.metrics.ConnectionOpened()
			h.logger.Debug("client registered",
				zap.String("user_id", c.userID.String()),
				zap.Int("user_connections", len(conns)),
			)
			reg.reply <- len(conns) == 1

		case reg := <-h.unregister:
			reg.reply <- h.remove(reg.client)

		case d := <-h.deliver:
			h.fanOut(d)
		}
	}
}

// remove drops c and reports whether it was its user's last connection.
func (h *Hub) remove(c *Client) bool {
	conns, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	close(c.send)
	h.metrics.ConnectionClosed()

	if len(conns) > 0 {
		return false
	}
	delete(h.clients, c.userID)
	h.logger.Debug("user disconnected", zap.String("user_id", c.userID.String()))
	return true
}

func (h *Hub) fanOut(d *delivery) {
	if d.all {
		for _, conns := range h.clients {
			h.sendTo(conns, d)
		}
		return
	}
	for _, id := range d.userIDs {
		conns, ok := h.clients[id]
		if !ok {
			h.metrics.DeliveryDropped("offline")
			continue
		}
		h.sendTo(conns, d)
	}
}

func (h *Hub) sendTo(conns map[*Client]struct{}, d *delivery) {
	for c := range conns {
		// Kicked clients stay registered until their read side returns.
		if c.isKicked() {
			continue
		}
		select {
		case c.send <- d.data:
		default:
			// A consumer this slow has already lost events; drop the
			// connection so the client resyncs from a fresh snapshot.
			h.metrics.DeliveryDropped("buffer_full")
			h.logger.Warn("client buffer full, disconnecting",
				zap.String("user_id", c.userID.String()),
				zap.String("event", string(d.eventType)),
			)
			c.kick()
		}
	}
}

// closeAll disconnects everyone on shutdown. send stays open because the
// read side may still be replying on it.
func (h *Hub) closeAll() {
	for userID, conns := range h.clients {
		for c := range conns {
			c.kick()
			h.metrics.ConnectionClosed()
		}
		delete(h.clients, userID)
	}
}

// Register adds c. first is true when c is the user's only connection.
func (h *Hub) Register(ctx context.Context, c *Client) (first bool, err error) {
	return h.call(ctx, h.register, c)
}

// Unregister removes c. last is true when the user has no connection left.
func (h *Hub) Unregister(ctx context.Context, c *Client) (last bool, err error) {
	return h.call(ctx, h.unregister, c)
}

func (h *Hub) call(ctx context.Context, ch chan registration, c *Client) (bool, error) {
	reg := registration{client: c, reply: make(chan bool, 1)}
	select {
	case ch <- reg:
	case <-ctx.Done():
		return false, ctx.Err()
	case <-h.done:
		return false, ErrHubClosed
	}
	return <-reg.reply, nil
}

// SendToUsers queues evt for every connection of the given users.
func (h *Hub) SendToUsers(ctx context.Context, userIDs []uuid.UUID, evt events.Envelope) {
	if len(userIDs) == 0 {
		return
	}
	h.enqueue(ctx, evt, &delivery{userIDs: userIDs})
}

// SendToAll queues evt for every connection.
func (h *Hub) SendToAll(ctx context.Context, evt events.Envelope) {
	h.enqueue(ctx, evt, &delivery{all: true})
}

func (h *Hub) enqueue(ctx context.Context, evt events.Envelope, d *delivery) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", string(evt.Type)), zap.Error(err))
		return
	}
	d.eventType = evt.Type
	d.data = data

	select {
	case h.deliver <- d:
	case <-ctx.Done():
		h.metrics.DeliveryDropped("cancelled")
	case <-h.done:
		h.metrics.DeliveryDropped("hub_closed")
	}
}
