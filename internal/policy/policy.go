// Package policy holds the channel role state machine: which membership
// transitions are legal for which roles, and who inherits ownership when the
// owner goes away. Everything here is pure; callers translate the returned
// reasons into their own error kinds.
package policy

import (
	"sort"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
)

type Action string

const (
	ActionJoin     Action = "join"
	ActionLeave    Action = "leave"
	ActionInvite   Action = "invite"
	ActionKick     Action = "kick"
	ActionBan      Action = "ban"
	ActionUnban    Action = "unban"
	ActionPromote  Action = "promote"
	ActionDemote   Action = "demote"
	ActionMute     Action = "mute"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionTransfer Action = "transfer"
	ActionPost     Action = "post"
)

// Actions lists every action the state machine knows about.
var Actions = []Action{
	ActionJoin, ActionLeave, ActionInvite, ActionKick, ActionBan, ActionUnban,
	ActionPromote, ActionDemote, ActionMute, ActionUpdate, ActionDelete,
	ActionTransfer, ActionPost,
}

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotMember         Reason = "not_member"
	ReasonAlreadyMember     Reason = "already_member"
	ReasonTargetPresent     Reason = "target_present"
	ReasonBanned            Reason = "banned"
	ReasonInsufficientRole  Reason = "insufficient_role"
	ReasonProtectedTarget   Reason = "protected_target"
	ReasonTargetAbsent      Reason = "target_absent"
	ReasonNotSelf           Reason = "not_self"
	ReasonSelfTarget        Reason = "self_target"
	ReasonInvalidTransition Reason = "invalid_transition"
	ReasonDirectChannel     Reason = "direct_channel"
	ReasonSystemOnly        Reason = "system_only"
	ReasonUnknownAction     Reason = "unknown_action"
)

// NoRole marks a party without any membership in the channel.
const NoRole domain.Role = ""

// Request describes one attempted transition. Actor and Target are the
// current roles of both parties (NoRole when absent). For self-targeted
// actions such as join and leave, Target mirrors Actor and Self is true.
type Request struct {
	Action Action
	Kind   domain.ChannelKind
	Actor  domain.Role
	Target domain.Role
	Self   bool
	System bool
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

func present(r domain.Role) bool { return r != NoRole }

// Decide evaluates a request against the role table.
func Decide(req Request) Decision {
	switch req.Action {
	case ActionJoin:
		return decideJoin(req)
	case ActionLeave:
		return decideLeave(req)
	case ActionInvite:
		return decideInvite(req)
	case ActionKick, ActionBan:
		return decideRemoval(req)
	case ActionUnban:
		return decideUnban(req)
	case ActionPromote:
		return decidePromote(req)
	case ActionDemote:
		return decideDemote(req)
	case ActionMute:
		return decideMute(req)
	case ActionUpdate, ActionDelete:
		return decideOwnerOnly(req)
	case ActionTransfer:
		if !req.System {
			return deny(ReasonSystemOnly)
		}
		return allow()
	case ActionPost:
		return decideMembership(req.Actor)
	}
	return deny(ReasonUnknownAction)
}

// decideMembership requires the actor to hold a non-banned membership.
func decideMembership(actor domain.Role) Decision {
	if !present(actor) {
		return deny(ReasonNotMember)
	}
	if actor == domain.RoleBanned {
		return deny(ReasonBanned)
	}
	return allow()
}

func decideJoin(req Request) Decision {
	if !req.Self {
		return deny(ReasonNotSelf)
	}
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	switch req.Actor {
	case NoRole:
		return allow()
	case domain.RoleBanned:
		return deny(ReasonBanned)
	}
	return deny(ReasonAlreadyMember)
}

func decideLeave(req Request) Decision {
	if !req.Self {
		return deny(ReasonNotSelf)
	}
	// A ban is only lifted by unban; leaving must not erase it.
	return decideMembership(req.Actor)
}

func decideInvite(req Request) Decision {
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Self {
		return deny(ReasonSelfTarget)
	}
	switch req.Target {
	case NoRole:
		return allow()
	case domain.RoleBanned:
		return deny(ReasonBanned)
	}
	return deny(ReasonTargetPresent)
}

func decideRemoval(req Request) Decision {
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Self {
		return deny(ReasonSelfTarget)
	}
	if req.Actor.Rank() < domain.RoleAdmin.Rank() {
		return deny(ReasonInsufficientRole)
	}
	switch req.Target {
	case NoRole:
		return deny(ReasonTargetAbsent)
	case domain.RoleOwner:
		return deny(ReasonProtectedTarget)
	case domain.RoleBanned:
		// Kicking would silently drop the ban, banning twice is meaningless.
		return deny(ReasonInvalidTransition)
	}
	return allow()
}

func decideUnban(req Request) Decision {
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Self {
		return deny(ReasonSelfTarget)
	}
	if req.Actor.Rank() < domain.RoleAdmin.Rank() {
		return deny(ReasonInsufficientRole)
	}
	if !present(req.Target) {
		return deny(ReasonTargetAbsent)
	}
	if req.Target != domain.RoleBanned {
		return deny(ReasonInvalidTransition)
	}
	return allow()
}

func decidePromote(req Request) Decision {
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Actor != domain.RoleOwner {
		return deny(ReasonInsufficientRole)
	}
	if req.Self {
		return deny(ReasonSelfTarget)
	}
	switch req.Target {
	case NoRole:
		return deny(ReasonTargetAbsent)
	case domain.RoleMember:
		return allow()
	}
	return deny(ReasonInvalidTransition)
}

func decideDemote(req Request) Decision {
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Actor != domain.RoleOwner {
		return deny(ReasonInsufficientRole)
	}
	if req.Self {
		// The owner stepping down would leave the channel ownerless.
		return deny(ReasonProtectedTarget)
	}
	switch req.Target {
	case NoRole:
		return deny(ReasonTargetAbsent)
	case domain.RoleAdmin:
		return allow()
	}
	return deny(ReasonInvalidTransition)
}

func decideMute(req Request) Decision {
	if req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Self {
		return deny(ReasonSelfTarget)
	}
	if req.Actor.Rank() < domain.RoleAdmin.Rank() {
		return deny(ReasonInsufficientRole)
	}
	switch req.Target {
	case NoRole:
		return deny(ReasonTargetAbsent)
	case domain.RoleBanned:
		return deny(ReasonInvalidTransition)
	}
	if req.Target.Rank() >= req.Actor.Rank() {
		return deny(ReasonProtectedTarget)
	}
	return allow()
}

func decideOwnerOnly(req Request) Decision {
	if d := decideMembership(req.Actor); !d.Allowed {
		return d
	}
	if req.Actor != domain.RoleOwner {
		return deny(ReasonInsufficientRole)
	}
	if req.Action == ActionUpdate && req.Kind == domain.KindDirect {
		return deny(ReasonDirectChannel)
	}
	return allow()
}

// ActionForRole maps a requested target role onto the transition that
// produces it. OWNER only changes hands through the system transfer.
func ActionForRole(newRole domain.Role) (Action, bool) {
	switch newRole {
	case domain.RoleAdmin:
		return ActionPromote, true
	case domain.RoleMember:
		return ActionDemote, true
	case domain.RoleBanned:
		return ActionBan, true
	case domain.RoleOwner:
		return ActionTransfer, true
	}
	return "", false
}

// Successor picks the member that inherits ownership when departing leaves.
// The earliest admin wins, then the earliest member; banned memberships never
// inherit. ok is false when nobody eligible remains and the channel must go.
func Successor(members []domain.ChannelMember, departing uuid.UUID) (next domain.ChannelMember, ok bool) {
	ordered := make([]domain.ChannelMember, 0, len(members))
	for _, m := range members {
		if m.UserID == departing {
			continue
		}
		ordered = append(ordered, m)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seq < ordered[j].Seq
	})

	for _, want := range []domain.Role{domain.RoleAdmin, domain.RoleMember} {
		for _, m := range ordered {
			if m.Role == want {
				return m, true
			}
		}
	}
	return domain.ChannelMember{}, false
}

// OwnerCount counts OWNER memberships; callers assert it equals one whenever
// a channel has any non-banned member.
func OwnerCount(members []domain.ChannelMember) (owners, active int) {
	for _, m := range members {
		if m.Role == domain.RoleOwner {
			owners++
		}
		if m.Role != domain.RoleBanned {
			active++
		}
	}
	return owners, active
}
