// Package clock abstracts time so staleness checks and backup naming can be
// tested deterministically.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fake implements Clock with a fixed time for testing.
type Fake struct {
	current time.Time
}

// NewFake creates a Fake clock pinned to t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the pinned time.
func (f *Fake) Now() time.Time {
	return f.current
}

// Set repins the clock to t.
func (f *Fake) Set(t time.Time) {
	f.current = t
}

// Advance moves the pinned time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
