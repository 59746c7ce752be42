package security

import "time"

// SystemClock reports UTC wall time truncated to milliseconds, the precision
// every store can round-trip.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
