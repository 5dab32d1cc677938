package doodle

import "time"

const fpsWindow = time.Second

// frameClock measures frame deltas and a frame rate averaged over one-second
// windows. It is only touched from the loop goroutine.
type frameClock struct {
	now func() time.Time

	start        time.Time
	last         time.Time
	windowStart  time.Time
	windowFrames int
	fps          float64
	ticked       bool
}

func newFrameClock() frameClock {
	return frameClock{now: time.Now}
}

func (c *frameClock) reset() {
	t := c.now()
	c.start, c.last, c.windowStart = t, t, t
	c.windowFrames = 0
	c.fps = 0
	c.ticked = false
}

// tick marks the start of a frame.
func (c *frameClock) tick() (delta, elapsed time.Duration, fps float64) {
	t := c.now()
	if c.ticked {
		delta = t.Sub(c.last)
	}
	c.ticked = true
	c.last = t
	elapsed = t.Sub(c.start)

	c.windowFrames++
	if span := t.Sub(c.windowStart); span >= fpsWindow {
		c.fps = float64(c.windowFrames) / span.Seconds()
		c.windowStart = t
		c.windowFrames = 0
	}
	return delta, elapsed, c.fps
}
