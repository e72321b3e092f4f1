package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the lifecycle services. Callers branch on these
// to pick user-facing responses.
var (
	// ErrNotALobby means the referenced channel carries no lobby binding.
	ErrNotALobby = errors.New("channel is not a lobby")

	// ErrQuotaExceeded means the member already owns the maximum number of
	// temporary channels allowed by the effective policy.
	ErrQuotaExceeded = errors.New("channel quota exceeded")

	// ErrNotOwner means the caller tried to manage a channel they do not own.
	ErrNotOwner = errors.New("caller does not own this channel")

	// ErrChannelNotFound means no record exists for the channel.
	ErrChannelNotFound = errors.New("temp channel not found")

	// ErrLobbyNotFound means no lobby binding exists for the channel.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrChannelGone means the Discord channel no longer exists.
	ErrChannelGone = errors.New("channel no longer exists")
)

// PersistenceError is returned when a channel was created externally but its
// record could not be stored. Compensated reports whether the channel was
// deleted again; when false an orphan exists until the next sweep resolves
// the drift.
type PersistenceError struct {
	ChannelID   int64
	Compensated bool
	Err         error
}

func (e *PersistenceError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("failed to persist record for channel %d (channel deleted again): %v", e.ChannelID, e.Err)
	}
	return fmt.Sprintf("failed to persist record for channel %d (channel orphaned): %v", e.ChannelID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
