// Package poll runs fixed-interval polling loops with a hard attempt ceiling.
//
// Every loop in the workflow is "call, sleep, recheck": a constant back-off
// wrapped in a retry limit and the caller's context. The timer is pluggable so
// tests can observe the requested sleeps without waiting for them.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when every attempt ran without the condition being met.
var ErrExhausted = errors.New("poll attempts exhausted")

// errPending marks an attempt that completed without error but is not done yet.
var errPending = errors.New("condition not met")

// Func is one polling attempt. attempt starts at 1. Returning a non-nil
// error counts as a failed attempt and is retried after the same interval.
type Func func(ctx context.Context, attempt int) (done bool, err error)

// Notify is called before each sleep with the attempt that just ran,
// its error (nil when the condition was simply not met) and the delay.
type Notify func(attempt int, err error, next time.Duration)

// Policy describes a polling loop.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	// LeadingWait sleeps one interval before the first attempt.
	LeadingWait bool
	// Timer overrides the real timer. Nil uses time.Timer.
	Timer backoff.Timer
}

// Run calls fn until it reports done, MaxAttempts is reached or ctx ends.
// It returns the number of attempts made. The error is nil when fn reported
// done, wraps ErrExhausted (and the last attempt's error, if any) when the
// budget ran out, or is the context error.
func (p Policy) Run(ctx context.Context, fn Func, notify Notify) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, fmt.Errorf("poll: max attempts must be positive, got %d", p.MaxAttempts)
	}

	t := p.Timer
	if t == nil {
		t = &realTimer{}
	}

	if p.LeadingWait {
		if err := sleep(ctx, t, p.Interval); err != nil {
			return 0, err
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.MaxAttempts-1)),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotifyWithTimer(func() error {
		attempt++
		done, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		if !done {
			return errPending
		}
		return nil
	}, b, func(err error, next time.Duration) {
		if notify == nil {
			return
		}
		if errors.Is(err, errPending) {
			err = nil
		}
		notify(attempt, err, next)
	}, t)

	switch {
	case err == nil:
		return attempt, nil
	case ctx.Err() != nil:
		return attempt, ctx.Err()
	case errors.Is(err, errPending):
		return attempt, ErrExhausted
	default:
		return attempt, fmt.Errorf("%w: %w", ErrExhausted, err)
	}
}

func sleep(ctx context.Context, t backoff.Timer, d time.Duration) error {
	t.Start(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// realTimer mirrors backoff's default timer, which is unexported.
type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *realTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *realTimer) C() <-chan time.Time {
	return t.timer.C
}
