package vote

import (
	"errors"
	"fmt"
	"time"
)

// The text of these errors is what the requesting client sees in chat.
var (
	ErrVoteInProgress    = errors.New("Wait for current vote to end before calling a new one.")
	ErrUnknownOption     = errors.New("isn't an option on this server")
	ErrKickDisabled      = errors.New("Server does not allow voting to kick players")
	ErrInvalidKickTarget = errors.New("Invalid client id to kick")
	ErrNoActiveVote      = errors.New("no vote in progress")

	// Silent rejections are logged but never reported to the client.
	ErrVoteSpam        = errors.New("vote attempt too soon after the previous one")
	ErrUnknownVoteType = errors.New("unknown vote type")
	ErrUnknownClient   = errors.New("unknown client")
)

type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("You must wait %d seconds before making another vote", int(e.Remaining/time.Second)+1)
}

type UnknownOptionError struct {
	Value string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("'%s' %s", e.Value, ErrUnknownOption)
}

func (e *UnknownOptionError) Is(target error) bool {
	return target == ErrUnknownOption
}

// IsSilent reports whether err should be dropped without telling the client.
func IsSilent(err error) bool {
	return errors.Is(err, ErrVoteSpam) ||
		errors.Is(err, ErrUnknownVoteType) ||
		errors.Is(err, ErrUnknownClient)
}
