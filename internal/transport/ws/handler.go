package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// TokenParser validates an access token and returns the user it was issued to.
type TokenParser func(token string) (uuid.UUID, error)

// PresenceUpdater is told when a user's first connection opens and their
// last one closes.
type PresenceUpdater interface {
	SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) (*domain.User, error)
}

type Handler struct {
	hub      *Hub
	parse    TokenParser
	presence PresenceUpdater
	opts     Options
	origins  []string
	logger   *zap.Logger
}

func NewHandler(hub *Hub, parse TokenParser, presence PresenceUpdater, opts Options, origins []string) *Handler {
	return &Handler{
		hub:      hub,
		parse:    parse,
		presence: presence,
		opts:     opts,
		origins:  origins,
		logger:   hub.logger.Named("handler"),
	}
}

// ServeHTTP upgrades to WebSocket. Auth is done via ?token=xxx query param
// (browsers can't set headers on the upgrade request).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.parse(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.Debug("accept failed", zap.Error(err))
		return
	}

	ctx := r.Context()
	client := NewClient(h.hub, conn, userID, h.opts)
	first, err := h.hub.Register(ctx, client)
	if err != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	if first {
		h.setPresence(ctx, userID, domain.StatusOnline)
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)

	// The request context is gone once the peer hangs up.
	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	last, err := h.hub.Unregister(cleanup, client)
	if err == nil && last {
		h.setPresence(cleanup, userID, domain.StatusOffline)
	}
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	for _, o := range h.origins {
		if o == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.origins}
}

func (h *Handler) setPresence(ctx context.Context, userID uuid.UUID, status domain.UserStatus) {
	if h.presence == nil {
		return
	}
	if _, err := h.presence.SetStatus(ctx, userID, status); err != nil {
		h.logger.Warn("updating presence",
			zap.String("user_id", userID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
