package services

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delayer pauses after a failed authentication attempt so that response
// timing does not reveal which check failed.
type Delayer interface {
	Delay(ctx context.Context)
}

// RandomDelayer sleeps for a uniformly random duration in [Min, Max].
type RandomDelayer struct {
	Min, Max time.Duration

	// seams for tests
	pick  func(n int64) int64
	sleep func(ctx context.Context, d time.Duration)
}

// NewRandomDelayer returns a Delayer bounded by min and max.
func NewRandomDelayer(min, max time.Duration) *RandomDelayer {
	return &RandomDelayer{Min: min, Max: max, pick: rand.Int64N, sleep: sleepCtx}
}

// Next returns the duration the next Delay call would sleep.
func (d *RandomDelayer) Next() time.Duration {
	span := int64(d.Max - d.Min)
	if span <= 0 {
		return d.Min
	}
	return d.Min + time.Duration(d.pick(span+1))
}

func (d *RandomDelayer) Delay(ctx context.Context) {
	if wait := d.Next(); wait > 0 {
		d.sleep(ctx, wait)
	}
}

// sleepCtx returns early when ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
