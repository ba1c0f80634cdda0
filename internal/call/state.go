// Package call holds the per-call state and the dial metadata that seeds it.
package call

import "time"

// State is the mutable record for one call. Exactly one instance exists
// per call; it is owned by that call's orchestrator, never shared across
// calls, and dropped at call end.
type State struct {
	CustomerName string
	PhoneNumber  string // canonical E.164, set once, never mutated

	// Dialogue outcome, written only by the dialogue agent.
	IsInterested     bool
	PaymentAmount    string
	PaymentConfirmed bool

	// InteractionCount increments once per agent utterance-turn.
	InteractionCount int

	CallStartTime time.Time
}

// NewState builds the state for a freshly dialed call.
func NewState(phoneNumber string) *State {
	return &State{
		PhoneNumber:   phoneNumber,
		CallStartTime: time.Now(),
	}
}

// Summary is the immutable record of a finished call, emitted at teardown
// for the completion log line and the optional report ledger.
type Summary struct {
	Room             string
	PhoneNumber      string
	StartedAt        time.Time
	Duration         time.Duration
	Interactions     int
	Interested       bool
	PaymentAmount    string
	PaymentConfirmed bool
}

// Summarize folds the call state into its completion record.
func (s *State) Summarize(room string, endedAt time.Time) Summary {
	return Summary{
		Room:             room,
		PhoneNumber:      s.PhoneNumber,
		StartedAt:        s.CallStartTime,
		Duration:         endedAt.Sub(s.CallStartTime),
		Interactions:     s.InteractionCount,
		Interested:       s.IsInterested,
		PaymentAmount:    s.PaymentAmount,
		PaymentConfirmed: s.PaymentConfirmed,
	}
}
