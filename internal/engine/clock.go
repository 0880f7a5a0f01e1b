package engine

import "time"

// Clock abstracts time so the engine's delay and timeout behaviour can
// be driven deterministically in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run after d and returns a handle that
	// can cancel the pending call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it
	// already fired or was stopped.
	Stop() bool
}

// realClock delegates to the time package.
type realClock struct{}

// NewClock returns a Clock backed by real wall-clock time.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
