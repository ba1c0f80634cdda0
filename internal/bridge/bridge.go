// Package bridge abstracts the telephony service the orchestrator drives.
// The core never talks to LiveKit directly; it sees this surface only, so
// tests substitute a recording fake.
package bridge

import "context"

// Participant is the slice of remote participant info the core cares about.
type Participant struct {
	SID      string
	Identity string
}

// RoomInfo describes an active room on the bridge.
type RoomInfo struct {
	SID  string
	Name string
}

// Telephony is the capability surface required by one call job.
type Telephony interface {
	// CreateSIPParticipant dials number over the trunk into room and
	// blocks until the callee answers. An unanswered or failed attempt
	// returns an error; retrying is the caller's decision.
	CreateSIPParticipant(ctx context.Context, room, trunkID, number, identity string) error

	// DeleteRoom tears down the server-side room, disconnecting all
	// participants.
	DeleteRoom(ctx context.Context, room string) error

	// WaitForParticipant blocks until a participant with the given
	// identity is present in room, or ctx ends.
	WaitForParticipant(ctx context.Context, room, identity string) (*Participant, error)
}
