package service

import (
	"errors"
	"fmt"

	"github.com/vedran77/arena/internal/policy"
	"github.com/vedran77/arena/internal/repository"
)

// Error kinds surfaced to callers. Every error returned by the services
// matches exactly one of these with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyMember   = errors.New("already a member")
	ErrForbidden       = errors.New("forbidden")
	ErrRoleViolation   = errors.New("invalid role transition")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

var (
	ErrChannelNotFound  = fmt.Errorf("channel %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrMessageNotFound  = fmt.Errorf("message %w", ErrNotFound)
	ErrNotChannelMember = fmt.Errorf("%w: not a member of this channel", ErrForbidden)
	ErrMuted            = fmt.Errorf("%w: muted in this channel", ErrForbidden)
	ErrWrongPassword    = fmt.Errorf("%w: wrong channel password", ErrAuthFailed)
	ErrInvalidCreds     = fmt.Errorf("%w: invalid email or password", ErrAuthFailed)
	ErrEmailTaken       = fmt.Errorf("%w: email already taken", ErrConflict)
	ErrUsernameTaken    = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrChallengeClosed  = fmt.Errorf("%w: challenge is no longer pending", ErrConflict)
)

// decisionError translates a refused policy decision into an error kind.
func decisionError(reason policy.Reason) error {
	var kind error
	switch reason {
	case policy.ReasonAlreadyMember:
		kind = ErrAlreadyMember
	case policy.ReasonTargetAbsent:
		kind = ErrNotFound
	case policy.ReasonInvalidTransition, policy.ReasonSystemOnly:
		kind = ErrRoleViolation
	case policy.ReasonUnknownAction:
		kind = ErrInvalidArgument
	default:
		kind = ErrForbidden
	}
	return fmt.Errorf("%w: %s", kind, reason)
}

// storageError maps repository sentinels that escaped an operation.
func storageError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
