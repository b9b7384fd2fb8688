package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/events"
	"go.uber.org/zap"
)

// MemberLister resolves the current audience of a channel.
type MemberLister interface {
	ListMemberIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error)
}

// HubNotifier implements service.Broadcaster on top of the Hub.
type HubNotifier struct {
	hub     *Hub
	members MemberLister
	logger  *zap.Logger
}

func NewHubNotifier(hub *Hub, members MemberLister) *HubNotifier {
	return &HubNotifier{hub: hub, members: members, logger: hub.logger.Named("notifier")}
}

// ToChannel sends evt to the channel's non-banned members as of now, plus also.
func (n *HubNotifier) ToChannel(ctx context.Context, channelID uuid.UUID, evt events.Envelope, also ...uuid.UUID) {
	ids, err := n.members.ListMemberIDs(ctx, channelID)
	if err != nil {
		n.logger.Warn("resolving channel audience",
			zap.String("channel_id", channelID.String()),
			zap.String("event", string(evt.Type)),
			zap.Error(err),
		)
	}
	for _, id := range also {
		if !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	n.hub.SendToUsers(ctx, ids, evt)
}

func (n *HubNotifier) ToUsers(ctx context.Context, userIDs []uuid.UUID, evt events.Envelope) {
	n.hub.SendToUsers(ctx, userIDs, evt)
}

func (n *HubNotifier) ToAll(ctx context.Context, evt events.Envelope) {
	n.hub.SendToAll(ctx, evt)
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}
