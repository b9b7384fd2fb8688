package ws

import (
	"github.com/vedran77/arena/internal/events"
)

// Control frames. Everything else on the socket is a server → client state
// event from the events package.
const (
	TypePing  events.Type = "ping"
	TypePong  events.Type = "pong"
	TypeError events.Type = "error"
)

// Error codes carried by error frames.
const (
	CodeInvalidFrame = "INVALID_FRAME"
	CodeUnknownEvent = "UNKNOWN_EVENT"
	CodeRateLimited  = "RATE_LIMITED"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
