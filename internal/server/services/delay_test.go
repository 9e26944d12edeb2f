package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomDelayer_Bounds(t *testing.T) {
	d := NewRandomDelayer(100*time.Millisecond, time.Second)

	for i := 0; i < 1000; i++ {
		n := d.Next()
		assert.GreaterOrEqual(t, n, 100*time.Millisecond)
		assert.LessOrEqual(t, n, time.Second)
	}
}

func TestRandomDelayer_UsesPickAndSleep(t *testing.T) {
	var slept time.Duration
	d := NewRandomDelayer(100*time.Millisecond, 200*time.Millisecond)
	d.pick = func(n int64) int64 {
		assert.Equal(t, int64(100*time.Millisecond)+1, n)
		return int64(42 * time.Millisecond)
	}
	d.sleep = func(_ context.Context, dur time.Duration) { slept = dur }

	d.Delay(context.Background())
	assert.Equal(t, 142*time.Millisecond, slept)
}

func TestRandomDelayer_FixedAndZero(t *testing.T) {
	called := false
	d := NewRandomDelayer(0, 0)
	d.sleep = func(context.Context, time.Duration) { called = true }
	d.Delay(context.Background())
	assert.False(t, called)

	assert.Equal(t, 5*time.Millisecond, NewRandomDelayer(5*time.Millisecond, 5*time.Millisecond).Next())
}

func TestSleepCtx_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepCtx(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}
