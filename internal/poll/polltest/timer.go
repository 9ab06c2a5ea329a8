// Package polltest provides a timer for exercising poll loops without sleeping.
package polltest

import (
	"sync"
	"time"
)

// Timer fires immediately on Start and records every requested duration.
type Timer struct {
	mu     sync.Mutex
	c      chan time.Time
	starts []time.Duration
}

// NewTimer returns a ready-to-use Timer.
func NewTimer() *Timer {
	return &Timer{c: make(chan time.Time, 1)}
}

func (t *Timer) Start(d time.Duration) {
	t.mu.Lock()
	t.starts = append(t.starts, d)
	t.mu.Unlock()

	select {
	case t.c <- time.Now():
	default:
	}
}

func (t *Timer) Stop() {}

func (t *Timer) C() <-chan time.Time {
	return t.c
}

// Sleeps returns the durations passed to Start, in order.
func (t *Timer) Sleeps() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.starts))
	copy(out, t.starts)
	return out
}

// Total returns the sum of all requested sleeps.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, d := range t.Sleeps() {
		total += d
	}
	return total
}
