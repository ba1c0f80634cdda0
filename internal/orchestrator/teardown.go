package orchestrator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/retry"
)

// Teardown deletes the call's room exactly once, no matter how many paths
// race to trigger it. It never reports failure to its caller: by teardown
// time the conversational value of the call is already delivered or lost,
// so exhaustion is logged and swallowed.
type Teardown struct {
	once   sync.Once
	tel    bridge.Telephony
	room   string
	policy retry.Policy
	log    *logrus.Entry
}

func NewTeardown(tel bridge.Telephony, room string, policy retry.Policy, log *logrus.Entry) *Teardown {
	return &Teardown{tel: tel, room: room, policy: policy, log: log}
}

// HangUp releases the room with bounded retries. Safe to call from both
// the dialogue's closing step and the orchestrator's failure paths; only
// the first call acts.
func (t *Teardown) HangUp(ctx context.Context) {
	t.once.Do(func() {
		_, err := retry.Do(ctx, t.log, "hangup", t.policy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, t.tel.DeleteRoom(ctx, t.room)
		})
		if err != nil {
			t.log.WithField("error", err.Error()).Error("failed to hang up after all retries")
			return
		}
		t.log.Info("call hung up")
	})
}
