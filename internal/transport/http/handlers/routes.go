package handlers

import (
	"net/http"
)

// Set groups the API handlers for route registration.
type Set struct {
	Auth     *AuthHandler
	Channels *ChannelHandler
	Messages *MessageHandler
	Users    *UserHandler
	Direct   *DirectHandler
}

// Register mounts the /api/v1 routes on mux. auth wraps every route that
// needs a signed-in user.
func (s Set) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	// Public
	mux.HandleFunc("POST /api/v1/auth/register", s.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", s.Auth.Login)

	// Self
	protected("GET /api/v1/me", s.Users.Me)
	protected("PATCH /api/v1/me", s.Users.UpdateProfile)
	protected("PUT /api/v1/me/status", s.Users.SetStatus)

	// Channels
	protected("GET /api/v1/channels", s.Channels.List)
	protected("POST /api/v1/channels", s.Channels.Create)
	protected("GET /api/v1/channels/{id}", s.Channels.Get)
	protected("PATCH /api/v1/channels/{id}", s.Channels.Update)
	protected("DELETE /api/v1/channels/{id}", s.Channels.Delete)
	protected("POST /api/v1/channels/{id}/join", s.Channels.Join)
	protected("POST /api/v1/channels/{id}/leave", s.Channels.Leave)

	// Channel members
	protected("POST /api/v1/channels/{id}/members", s.Channels.AddMember)
	protected("DELETE /api/v1/channels/{id}/members/{uid}", s.Channels.Kick)
	protected("PUT /api/v1/channels/{id}/members/{uid}/role", s.Channels.SetRole)
	protected("DELETE /api/v1/channels/{id}/bans/{uid}", s.Channels.Unban)
	protected("POST /api/v1/channels/{id}/mutes", s.Channels.Mute)

	// Messages
	protected("POST /api/v1/channels/{id}/messages", s.Messages.Send)
	protected("POST /api/v1/channels/{id}/invitations", s.Messages.Invite)
	protected("PUT /api/v1/channels/{id}/invitations/{mid}/status", s.Messages.SetChallengeStatus)

	// Direct channels
	protected("POST /api/v1/direct", s.Direct.Open)
}
