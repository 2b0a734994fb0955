package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps submission, deletion and save times. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for record stamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}

// Timestamp formats t the way stamp columns store it.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
