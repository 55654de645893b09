package clock

import "time"

// Clock allows injecting time into services so deadline math is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns a settable instant (useful for tests).
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock pinned to the provided instant.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set pins the clock to the provided instant.
func (f *Fixed) Set(t time.Time) {
	f.now = t.UTC()
}
