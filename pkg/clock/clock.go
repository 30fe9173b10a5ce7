package clock

import (
	"sync"
	"time"
)

// TimeOfDay is a wall-clock reading in the local zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// Clock is the time source for the session loops and the binary codec.
type Clock interface {
	Now() time.Time
	LocalTime() TimeOfDay
}

// SystemClock reads the host clock.
type SystemClock struct{}

// NewSystemClock returns a Clock backed by time.Now.
func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) LocalTime() TimeOfDay {
	now := time.Now().Local()
	return TimeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}
}

// FixedClock always reports the same instant. Tests move it with Set/Advance.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock returns a FixedClock positioned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (f *FixedClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *FixedClock) LocalTime() TimeOfDay {
	now := f.Now()
	return TimeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}
}

// Set moves the clock to t.
func (f *FixedClock) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *FixedClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
