package pipeline

import (
	"context"
	"math/rand"
	"time"
)

// Clock abstracts time so pacing can be tested without real delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Pacer enforces a minimum interval between consecutive network calls. The
// interval is drawn uniformly from [min, max] before each call.
type Pacer struct {
	min, max time.Duration
	clock    Clock
	jitter   func(n int64) int64
	last     time.Time
	started  bool
}

// NewPacer creates a pacer. A nil clock means the wall clock.
func NewPacer(min, max time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = RealClock
	}
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, clock: clock, jitter: rand.Int63n}
}

// Wait blocks until the next call may be made. The first call never waits.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.started {
		if remaining := p.interval() - p.clock.Now().Sub(p.last); remaining > 0 {
			if err := p.clock.Sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	p.started = true
	p.last = p.clock.Now()
	return nil
}

func (p *Pacer) interval() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(p.jitter(int64(p.max-p.min)+1))
}
