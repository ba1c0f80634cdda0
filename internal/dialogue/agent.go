package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SwarajMP/Bankbot/internal/call"
	"github.com/SwarajMP/Bankbot/internal/logger"
)

// State is the agent's position in the turn sequence.
type State int32

const (
	StateCreated State = iota
	StateGreeting
	StateAwaitingResponse
	StateBranching
	StateClosing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateGreeting:
		return "greeting"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateBranching:
		return "branching"
	case StateClosing:
		return "closing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scripts holds the fixed lines the agent can speak.
type Scripts struct {
	Greeting      string
	Interested    string
	NotInterested string
	Clarify       string
	NoResponse    string
}

// DefaultScripts builds the payment-reminder lines for a company and
// balance amount.
func DefaultScripts(company, amount string) Scripts {
	return Scripts{
		Greeting: fmt.Sprintf(
			"Hello! This is Emily from %s. I'm calling to remind you about your upcoming payment. "+
				"Can I confirm that I'm speaking to the account holder?", company),
		Interested:    fmt.Sprintf("Great! Your balance due is %s. Would you like to make the payment now?", amount),
		NotInterested: "No problem. I'll make a note that the account holder isn't available right now.",
		Clarify:       "I didn't quite catch that. Could you please repeat?",
		NoResponse:    "I didn't hear a response. Let's try again another time.",
	}
}

// Hangup tears down the call. It never reports failure to the agent;
// teardown problems are the teardown's own to log.
type Hangup func(ctx context.Context)

// Config carries the agent's scripts and pacing.
type Config struct {
	Scripts       Scripts
	PaymentAmount string
	ListenTimeout time.Duration
	ClosingPause  time.Duration
}

// Agent runs one greeting/listen/branch/close turn sequence, then hangs
// up. There are no mid-dialogue retries; a listen timeout is an
// anticipated branch, not a failure.
type Agent struct {
	engine Engine
	hangup Hangup
	cfg    Config
	log    *logrus.Entry

	state atomic.Int32
}

func NewAgent(engine Engine, hangup Hangup, cfg Config, log *logrus.Entry) *Agent {
	a := &Agent{engine: engine, hangup: hangup, cfg: cfg, log: log}
	a.state.Store(int32(StateCreated))
	return a
}

// State reports the agent's current position in the turn sequence.
func (a *Agent) State() State {
	return State(a.state.Load())
}

func (a *Agent) setState(s State) {
	a.state.Store(int32(s))
	a.log.WithField("agent_state", s.String()).Debug("state transition")
}

// Run executes the full dialogue against one call's state. Errors from the
// engine abort the sequence; the caller decides whether teardown is still
// owed. When Run reaches Closing, teardown has already run exactly once by
// the time it returns.
func (a *Agent) Run(ctx context.Context, st *call.State) error {
	if err := a.engine.WaitForConnection(ctx); err != nil {
		return fmt.Errorf("waiting for audio connection: %w", err)
	}
	a.log.Info("audio connection ready, starting dialogue")

	a.setState(StateGreeting)
	if err := a.say(ctx, st, a.cfg.Scripts.Greeting); err != nil {
		return err
	}

	a.setState(StateAwaitingResponse)
	utt, err := a.engine.Listen(ctx, a.cfg.ListenTimeout)
	if err != nil {
		return fmt.Errorf("listening for response: %w", err)
	}

	a.setState(StateBranching)
	reply := a.pickBranch(utt, st)
	if err := a.say(ctx, st, reply); err != nil {
		return err
	}

	a.setState(StateClosing)
	pause(ctx, a.cfg.ClosingPause) // let the closing line flush to the wire
	a.hangup(ctx)

	a.setState(StateTerminated)
	return nil
}

// pickBranch selects the closing line and records the dialogue outcome.
// "yes" is checked before "no"; an utterance containing both is treated as
// interested.
func (a *Agent) pickBranch(utt *Utterance, st *call.State) string {
	if utt == nil {
		a.log.Info("no response before listen timeout")
		return a.cfg.Scripts.NoResponse
	}

	heard := strings.ToLower(utt.Text)
	a.log.WithField("heard", logger.Sanitize(heard)).Info("customer responded")

	switch {
	case strings.Contains(heard, "yes"):
		st.IsInterested = true
		st.PaymentAmount = a.cfg.PaymentAmount
		return a.cfg.Scripts.Interested
	case strings.Contains(heard, "no"):
		st.IsInterested = false
		return a.cfg.Scripts.NotInterested
	default:
		return a.cfg.Scripts.Clarify
	}
}

func (a *Agent) say(ctx context.Context, st *call.State, text string) error {
	if err := a.engine.Say(ctx, text); err != nil {
		return fmt.Errorf("speaking: %w", err)
	}
	st.InteractionCount++
	return nil
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
