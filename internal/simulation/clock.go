package simulation

import "time"

// Clock anchors the degradation timeline. Injecting it keeps the generator
// free of process-global state and makes tests deterministic.
type Clock interface {
	// Start is the simulation anchor; elapsed time is measured from it.
	Start() time.Time
	// Now is the current simulation time.
	Now() time.Time
}

type wallClock struct {
	start time.Time
}

// NewClock returns a clock anchored at the current wall time.
func NewClock() Clock {
	return &wallClock{start: time.Now().UTC()}
}

func (c *wallClock) Start() time.Time { return c.start }
func (c *wallClock) Now() time.Time   { return time.Now().UTC() }

// FixedClock is a test clock with a settable current time.
type FixedClock struct {
	StartTime   time.Time
	CurrentTime time.Time
}

func (c *FixedClock) Start() time.Time { return c.StartTime }
func (c *FixedClock) Now() time.Time   { return c.CurrentTime }

// Advance moves the fixed clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.CurrentTime = c.CurrentTime.Add(d) }
