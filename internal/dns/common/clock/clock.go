// Package clock abstracts wall-clock time so round-trip timing can be tested.
package clock

import "time"

type Clock interface {
	Now() time.Time
	Since(start time.Time) time.Duration
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

func (c RealClock) Since(start time.Time) time.Duration {
	return time.Since(start)
}

// MockClock returns CurrentTime and, when Step is non-zero, moves it forward
// by Step after every call to Now.
type MockClock struct {
	CurrentTime time.Time
	Step        time.Duration
}

func (c *MockClock) Now() time.Time {
	now := c.CurrentTime
	c.CurrentTime = c.CurrentTime.Add(c.Step)
	return now
}

func (c *MockClock) Since(start time.Time) time.Duration {
	return c.CurrentTime.Sub(start)
}

func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
