// Package backoff turns failing operations into operations that only ever
// finish with a result, waiting a little longer after each consecutive
// failure.
package backoff

import (
	"context"
	"time"
)

const (
	DefaultUnit = time.Second
	DefaultCap  = 3
)

// Policy maps a consecutive failure count to a retry delay. It holds no
// state; the attempt counter belongs to the retry loop.
type Policy struct {
	Unit time.Duration
	Cap  int
}

func DefaultPolicy() Policy {
	return Policy{Unit: DefaultUnit, Cap: DefaultCap}
}

// Delay returns min(failures, Cap) units for the Nth consecutive failure
// (1-indexed).
func (p Policy) Delay(failures int) time.Duration {
	unit := p.Unit
	if unit <= 0 {
		unit = DefaultUnit
	}
	limit := p.Cap
	if limit <= 0 {
		limit = DefaultCap
	}
	if failures < 1 {
		failures = 1
	}
	if failures > limit {
		failures = limit
	}
	return time.Duration(failures) * unit
}

type options struct {
	sleep  func(ctx context.Context, d time.Duration) error
	notify func(err error, attempt int, delay time.Duration)
}

type Option func(*options)

// WithSleep replaces the timer-based wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithNotify registers a callback invoked after every failed attempt with
// the delay that precedes the next one.
func WithNotify(notify func(err error, attempt int, delay time.Duration)) Option {
	return func(o *options) {
		o.notify = notify
	}
}

// Forever runs op until it succeeds. Failures are never returned: the only
// way out without a value is cancellation of ctx, in which case ctx.Err()
// is returned.
func Forever[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{sleep: sleepWithContext}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		failures++
		delay := policy.Delay(failures)
		if o.notify != nil {
			o.notify(err, failures, delay)
		}
		if waitErr := o.sleep(ctx, delay); waitErr != nil {
			return zero, waitErr
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
