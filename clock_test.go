package doodle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := newFrameClock()
	c.now = func() time.Time { return now }
	c.reset()

	delta, elapsed, fps := c.tick()
	assert.Zero(t, delta)
	assert.Zero(t, elapsed)
	assert.Zero(t, fps)

	for range 9 {
		now = now.Add(100 * time.Millisecond)
		delta, elapsed, fps = c.tick()
	}
	assert.Equal(t, 100*time.Millisecond, delta)
	assert.Equal(t, 900*time.Millisecond, elapsed)
	assert.Zero(t, fps, "no full window yet")

	now = now.Add(100 * time.Millisecond)
	_, elapsed, fps = c.tick()
	assert.Equal(t, time.Second, elapsed)
	assert.InDelta(t, 11.0, fps, 0.001)

	now = now.Add(250 * time.Millisecond)
	_, _, fps = c.tick()
	assert.InDelta(t, 11.0, fps, 0.001, "fps holds until the next window closes")

	c.reset()
	delta, elapsed, _ = c.tick()
	assert.Zero(t, delta)
	assert.Zero(t, elapsed)
}
