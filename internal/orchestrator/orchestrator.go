// Package orchestrator owns the call lifecycle: dial, dialogue, join, and
// exactly-once teardown for one job.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/call"
	"github.com/SwarajMP/Bankbot/internal/config"
	"github.com/SwarajMP/Bankbot/internal/dialogue"
	"github.com/SwarajMP/Bankbot/internal/logger"
	"github.com/SwarajMP/Bankbot/internal/phone"
)

// Job is one dispatched outbound call: a room to work in and the metadata
// blob that came with the dispatch.
type Job struct {
	RoomName string
	Metadata string
}

// EngineFactory attaches a dialogue engine to the job's room. Construction
// establishes the engine's transport connection; readiness of the audio
// path is awaited separately by the agent.
type EngineFactory func(ctx context.Context, room string) (dialogue.Engine, error)

// Recorder persists completed-call summaries. Failures are logged, never
// fatal to the call.
type Recorder interface {
	Append(call.Summary) error
}

// Orchestrator runs call jobs. It is safe for concurrent jobs: every call
// gets its own state, agent, and teardown; nothing mutable is shared.
type Orchestrator struct {
	cfg       *config.Config
	tel       bridge.Telephony
	newEngine EngineFactory
	recorder  Recorder
	log       *logger.Logger
	clock     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the time source. Tests use this to pin durations.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithRecorder attaches a completed-call recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func New(cfg *config.Config, tel bridge.Telephony, newEngine EngineFactory, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		tel:       tel,
		newEngine: newEngine,
		log:       log,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunCall executes one job end to end. Validation failures abort before
// any bridge traffic. Anything that panics below is recovered here,
// logged with context, and converted into an error; the job is shut down
// unconditionally and the panic never propagates to the caller.
func (o *Orchestrator) RunCall(ctx context.Context, job Job) (sum *call.Summary, err error) {
	log := o.log.WithFields(logrus.Fields{
		"job_id": uuid.New().String(),
		"room":   job.RoomName,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("unexpected error, job shut down")
			sum, err = nil, fmt.Errorf("unexpected error: %v", r)
		}
	}()

	return o.runCall(ctx, job, log)
}

func (o *Orchestrator) runCall(parent context.Context, job Job, log *logrus.Entry) (*call.Summary, error) {
	md, mdErr := call.ParseMetadata(job.Metadata)
	if mdErr != nil {
		// tolerated: empty metadata fails normalization below and the
		// job aborts without touching the bridge
		log.WithField("error", mdErr.Error()).Warn("invalid metadata JSON")
	}

	number, err := phone.Normalize(md.PhoneNumber())
	if err != nil {
		log.WithFields(logrus.Fields{
			"raw":   logger.Sanitize(md.PhoneNumber()),
			"error": err.Error(),
		}).Error("cannot place call")
		return nil, fmt.Errorf("validating phone number %q: %w", logger.Sanitize(md.PhoneNumber()), err)
	}
	log = log.WithField("phone", logger.Sanitize(number))
	log.Info("starting call")

	st := call.NewState(number)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	td := NewTeardown(o.tel, job.RoomName, o.cfg.HangupRetry, log)

	// A panic mid-job must still release the room before the recover in
	// RunCall reports it.
	defer func() {
		if r := recover(); r != nil {
			cancel()
			td.HangUp(context.WithoutCancel(parent))
			panic(r)
		}
	}()

	engine, err := o.newEngine(ctx, job.RoomName)
	if err != nil {
		td.HangUp(context.WithoutCancel(parent))
		return nil, fmt.Errorf("starting dialogue engine: %w", err)
	}

	agent := dialogue.NewAgent(engine, td.HangUp, dialogue.Config{
		Scripts:       dialogue.DefaultScripts(o.cfg.Company, o.cfg.PaymentAmount),
		PaymentAmount: o.cfg.PaymentAmount,
		ListenTimeout: o.cfg.ListenTimeout,
		ClosingPause:  o.cfg.ClosingPause,
	}, log)

	// The dialogue starts concurrently with dialing: its audio-readiness
	// wait must not delay the dial, and ringing must not delay session
	// startup.
	done := make(chan error, 1)
	go func() {
		done <- agent.Run(ctx, st)
	}()

	dialer := NewDialer(o.tel, o.cfg.TrunkID, o.cfg.DialRetry, log)
	if err := dialer.PlaceCall(ctx, job.RoomName, number); err != nil {
		o.abort(cancel, done, td, parent)
		return nil, err
	}

	joinCtx, joinCancel := context.WithTimeout(ctx, o.cfg.JoinTimeout)
	participant, err := o.tel.WaitForParticipant(joinCtx, job.RoomName, number)
	joinCancel()
	if err != nil {
		o.abort(cancel, done, td, parent)
		return nil, fmt.Errorf("callee never joined: %w", err)
	}
	log.WithField("identity", logger.Sanitize(participant.Identity)).Info("participant joined")

	if err := <-done; err != nil {
		// the agent died before its closing step; the room is still owed
		// a release
		td.HangUp(context.WithoutCancel(parent))
		return nil, fmt.Errorf("dialogue failed: %w", err)
	}

	summary := st.Summarize(job.RoomName, o.clock())
	log.WithFields(logrus.Fields{
		"duration_s":   fmt.Sprintf("%.1f", summary.Duration.Seconds()),
		"interactions": summary.Interactions,
		"interested":   summary.Interested,
	}).Info("call completed")

	if o.recorder != nil {
		if err := o.recorder.Append(summary); err != nil {
			log.WithField("error", err.Error()).Warn("failed to record call summary")
		}
	}
	return &summary, nil
}

// abort cancels the in-flight dialogue, waits for its goroutine to exit,
// and releases the room once, best effort.
func (o *Orchestrator) abort(cancel context.CancelFunc, done <-chan error, td *Teardown, parent context.Context) {
	cancel()
	<-done
	td.HangUp(context.WithoutCancel(parent))
}
