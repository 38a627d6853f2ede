package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundTimerExpires(t *testing.T) {
	var ticks, expired atomic.Int32
	rt := startRoundTimer(60*time.Millisecond, 10*time.Millisecond,
		func(time.Duration) { ticks.Add(1) },
		func() { expired.Add(1) })
	defer rt.Stop()

	assert.Eventually(t, func() bool { return expired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Positive(t, ticks.Load())
}

func TestRoundTimerStop(t *testing.T) {
	var expired atomic.Int32
	rt := startRoundTimer(30*time.Millisecond, time.Hour, func(time.Duration) {}, func() { expired.Add(1) })
	rt.Stop()
	rt.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, expired.Load())
}
