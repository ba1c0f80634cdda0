package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/retry"
)

// ErrDialFailed means every dial attempt was exhausted. It is fatal to the
// whole call job: no dialogue happens without a connected callee.
var ErrDialFailed = errors.New("failed to connect SIP participant after retries")

// Dialer places the outbound call through the trunk with bounded retries.
// An attempt only succeeds once the callee has answered; an unanswered
// timeout is a failed attempt like any other.
type Dialer struct {
	tel    bridge.Telephony
	trunk  string
	policy retry.Policy
	log    *logrus.Entry
}

func NewDialer(tel bridge.Telephony, trunk string, policy retry.Policy, log *logrus.Entry) *Dialer {
	return &Dialer{tel: tel, trunk: trunk, policy: policy, log: log}
}

// PlaceCall dials number into room. The callee identity is the dialed
// number, which is also the key the join wait looks for.
func (d *Dialer) PlaceCall(ctx context.Context, room, number string) error {
	_, err := retry.Do(ctx, d.log, "sip dial", d.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.tel.CreateSIPParticipant(ctx, room, d.trunk, number, number)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDialFailed, err)
	}
	d.log.Info("SIP participant connected")
	return nil
}
