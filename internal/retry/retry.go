// Package retry wraps cenkalti/backoff with the bounded, deterministic
// policy the dial and hangup paths share.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Policy bounds a retryable operation. Delay before attempt i+1 is
// BaseDelay * 2^i, with no jitter.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}

// Exhausted reports that every attempt failed. It carries the last error.
type Exhausted struct {
	Attempts uint64
	Err      error
}

func (e *Exhausted) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Exhausted) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable; Do returns it without further
// attempts.
func Permanent(err error) error { return backoff.Permanent(err) }

func (p Policy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0 // attempts bound the loop, not wall time
	return bo
}

// Do runs op until it succeeds, the policy is exhausted, or ctx ends.
// The first success is returned immediately. Every failure is logged with
// its attempt number; the wait between attempts is a timer, never a busy
// stall, and is cut short by ctx cancellation.
func Do[T any](ctx context.Context, log *logrus.Entry, label string, p Policy, op func(context.Context) (T, error)) (T, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	var attempt uint64
	wrapped := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil {
			log.WithFields(logrus.Fields{
				"op":      label,
				"attempt": attempt,
				"error":   err.Error(),
			}).Error("attempt failed")
		}
		return v, err
	}

	notify := func(_ error, delay time.Duration) {
		log.WithFields(logrus.Fields{
			"op":      label,
			"attempt": attempt,
			"backoff": delay.String(),
		}).Debug("backing off before retry")
	}

	b := backoff.WithMaxRetries(backoff.WithContext(p.backOff(), ctx), maxAttempts-1)
	v, err := backoff.RetryNotifyWithData(wrapped, b, notify)
	if err != nil {
		return v, &Exhausted{Attempts: attempt, Err: err}
	}
	return v, nil
}
