// Package clock provides an injectable time source.
//
// Services take a Clock instead of calling time.Now so tests can pin the
// current instant. Production code uses Real(); tests use Fake().
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by time.Now.
func Real() Clock {
	return realClock{}
}

// FakeClock is a Clock whose time only moves when Set or Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Fake returns a FakeClock pinned to initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the pinned time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// AdvanceDays moves the clock forward by n calendar days.
func (c *FakeClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, n)
}

// Set pins the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
