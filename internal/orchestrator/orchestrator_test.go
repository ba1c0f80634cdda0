package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/call"
	"github.com/SwarajMP/Bankbot/internal/config"
	"github.com/SwarajMP/Bankbot/internal/dialogue"
	"github.com/SwarajMP/Bankbot/internal/logger"
	"github.com/SwarajMP/Bankbot/internal/orchestrator"
	"github.com/SwarajMP/Bankbot/internal/retry"
)

func retryPolicy(attempts uint64) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

// fakeTelephony records bridge traffic and fails on demand.
type fakeTelephony struct {
	mu          sync.Mutex
	dialCalls   int
	dialedTo    []string
	dialErr     error // returned by every dial attempt when set
	deleteCalls int
	deleteErr   error // returned by every delete attempt when set
	joinBlocks  bool  // WaitForParticipant waits for ctx instead of joining
}

func (f *fakeTelephony) CreateSIPParticipant(_ context.Context, _, _, number, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialCalls++
	f.dialedTo = append(f.dialedTo, number)
	return f.dialErr
}

func (f *fakeTelephony) DeleteRoom(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeTelephony) WaitForParticipant(ctx context.Context, _, identity string) (*bridge.Participant, error) {
	if f.joinBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &bridge.Participant{SID: "PA_test", Identity: identity}, nil
}

func (f *fakeTelephony) snapshot() (dials, deletes int, to []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialCalls, f.deleteCalls, append([]string(nil), f.dialedTo...)
}

// stubEngine answers the scripted dialogue with a fixed utterance.
type stubEngine struct {
	mu       sync.Mutex
	said     []string
	response string // "" simulates a listen timeout
}

func (s *stubEngine) WaitForConnection(ctx context.Context) error {
	return ctx.Err()
}

func (s *stubEngine) Say(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

func (s *stubEngine) Listen(ctx context.Context, _ time.Duration) (*dialogue.Utterance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.response == "" {
		return nil, nil
	}
	return &dialogue.Utterance{Text: s.response}, nil
}

func (s *stubEngine) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

// blockedEngine never becomes ready; it exits only on cancellation. Used
// to prove the dialogue subtask gets cancelled when dialing fails.
type blockedEngine struct{}

func (blockedEngine) WaitForConnection(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockedEngine) Say(context.Context, string) error { return errors.New("not connected") }

func (blockedEngine) Listen(context.Context, time.Duration) (*dialogue.Utterance, error) {
	return nil, errors.New("not connected")
}

func testConfig() *config.Config {
	return &config.Config{
		LiveKitURL:    "wss://test",
		APIKey:        "key",
		APISecret:     "secret",
		TrunkID:       "ST_test",
		AgentName:     "john-payment-specialist",
		Company:       "SecureCard Financial Services",
		PaymentAmount: "$250",
		ListenTimeout: 50 * time.Millisecond,
		ClosingPause:  0,
		JoinTimeout:   100 * time.Millisecond,
		DialRetry:     retryPolicy(3),
		HangupRetry:   retryPolicy(3),
	}
}

func newOrchestrator(t *testing.T, tel bridge.Telephony, eng dialogue.Engine, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	factory := func(context.Context, string) (dialogue.Engine, error) {
		return eng, nil
	}
	return orchestrator.New(testConfig(), tel, factory, logger.New(), opts...)
}

func TestRunCallHappyPath(t *testing.T) {
	tel := &fakeTelephony{}
	eng := &stubEngine{response: "yes speaking"}
	o := newOrchestrator(t, tel, eng)

	sum, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-1",
		Metadata: `{"phoneNumber": "9876543210"}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dials, deletes, to := tel.snapshot()
	if dials != 1 {
		t.Errorf("expected 1 dial, got %d", dials)
	}
	if len(to) != 1 || to[0] != "+919876543210" {
		t.Errorf("expected dial to +919876543210, got %v", to)
	}
	if deletes != 1 {
		t.Errorf("expected exactly one room delete, got %d", deletes)
	}
	if sum.Interactions != 2 {
		t.Errorf("expected 2 interactions, got %d", sum.Interactions)
	}
	if !sum.Interested {
		t.Error("expected interested outcome")
	}
	if sum.PhoneNumber != "+919876543210" {
		t.Errorf("summary phone = %q", sum.PhoneNumber)
	}
	if got := eng.spoken(); len(got) != 2 {
		t.Errorf("expected greeting and closing line, got %v", got)
	}
}

func TestRunCallMissingPhoneAbortsBeforeBridge(t *testing.T) {
	tel := &fakeTelephony{}
	o := newOrchestrator(t, tel, &stubEngine{})

	_, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-2",
		Metadata: `{}`,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	dials, deletes, _ := tel.snapshot()
	if dials != 0 || deletes != 0 {
		t.Errorf("expected zero bridge calls, got dials=%d deletes=%d", dials, deletes)
	}
}

func TestRunCallInvalidJSONAbortsBeforeBridge(t *testing.T) {
	tel := &fakeTelephony{}
	o := newOrchestrator(t, tel, &stubEngine{})

	_, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-3",
		Metadata: `{not json`,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	dials, deletes, _ := tel.snapshot()
	if dials != 0 || deletes != 0 {
		t.Errorf("expected zero bridge calls, got dials=%d deletes=%d", dials, deletes)
	}
}

func TestRunCallDialExhaustionCancelsDialogue(t *testing.T) {
	tel := &fakeTelephony{dialErr: errors.New("486 busy")}
	o := newOrchestrator(t, tel, blockedEngine{})

	_, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-4",
		Metadata: `{"phoneNumber": "9876543210"}`,
	})
	if !errors.Is(err, orchestrator.ErrDialFailed) {
		t.Fatalf("expected ErrDialFailed, got %v", err)
	}

	dials, deletes, _ := tel.snapshot()
	if dials != 3 {
		t.Errorf("expected 3 dial attempts, got %d", dials)
	}
	// the room existed from dispatch time, so the failure path commits to
	// exactly one best-effort cleanup
	if deletes != 1 {
		t.Errorf("expected one best-effort room delete, got %d", deletes)
	}
}

func TestRunCallTeardownExhaustionIsSwallowed(t *testing.T) {
	tel := &fakeTelephony{deleteErr: errors.New("twirp unavailable")}
	eng := &stubEngine{response: "no"}
	o := newOrchestrator(t, tel, eng)

	sum, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-5",
		Metadata: `{"phoneNumber": "9876543210"}`,
	})
	if err != nil {
		t.Fatalf("teardown exhaustion must not fail the call: %v", err)
	}
	if sum == nil {
		t.Fatal("expected a summary")
	}
	_, deletes, _ := tel.snapshot()
	if deletes != 3 {
		t.Errorf("expected 3 delete attempts, got %d", deletes)
	}
	if sum.Interested {
		t.Error("expected not-interested outcome")
	}
}

func TestRunCallJoinTimeoutReleasesRoom(t *testing.T) {
	tel := &fakeTelephony{joinBlocks: true}
	o := newOrchestrator(t, tel, blockedEngine{})

	_, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-6",
		Metadata: `{"phoneNumber": "9876543210"}`,
	})
	if err == nil {
		t.Fatal("expected join timeout error")
	}
	dials, deletes, _ := tel.snapshot()
	if dials != 1 {
		t.Errorf("expected 1 dial, got %d", dials)
	}
	if deletes != 1 {
		t.Errorf("expected one best-effort room delete, got %d", deletes)
	}
}

func TestRunCallEngineFactoryFailureReleasesRoom(t *testing.T) {
	tel := &fakeTelephony{}
	factory := func(context.Context, string) (dialogue.Engine, error) {
		return nil, errors.New("room connect refused")
	}
	o := orchestrator.New(testConfig(), tel, factory, logger.New())

	_, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-7",
		Metadata: `{"phoneNumber": "9876543210"}`,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	dials, deletes, _ := tel.snapshot()
	if dials != 0 {
		t.Errorf("expected no dial after engine failure, got %d", dials)
	}
	if deletes != 1 {
		t.Errorf("expected one best-effort room delete, got %d", deletes)
	}
}

func TestRunCallRecordsSummary(t *testing.T) {
	tel := &fakeTelephony{}
	eng := &stubEngine{response: "yes"}
	rec := &recorderSpy{}
	o := newOrchestrator(t, tel, eng, orchestrator.WithRecorder(rec))

	if _, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-8",
		Metadata: `{"phoneNumber": "9876543210"}`,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.rows()) != 1 {
		t.Fatalf("expected 1 recorded summary, got %d", len(rec.rows()))
	}
	if rec.rows()[0].Room != "payment-outbound-call-8" {
		t.Errorf("recorded room = %q", rec.rows()[0].Room)
	}
}

func TestRunCallRecorderFailureIsNotFatal(t *testing.T) {
	tel := &fakeTelephony{}
	eng := &stubEngine{response: "yes"}
	rec := &recorderSpy{err: errors.New("disk full")}
	o := newOrchestrator(t, tel, eng, orchestrator.WithRecorder(rec))

	if _, err := o.RunCall(context.Background(), orchestrator.Job{
		RoomName: "payment-outbound-call-9",
		Metadata: `{"phoneNumber": "9876543210"}`,
	}); err != nil {
		t.Fatalf("recorder failure must not fail the call: %v", err)
	}
}

type recorderSpy struct {
	mu  sync.Mutex
	got []call.Summary
	err error
}

func (r *recorderSpy) Append(s call.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, s)
	return nil
}

func (r *recorderSpy) rows() []call.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call.Summary(nil), r.got...)
}
