// Package rowmodel turns provider and key-service records into the rows the
// dashboard tables render. Nothing here does I/O; time-relative values are
// computed against a Clock on every read.
package rowmodel

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
