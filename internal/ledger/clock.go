package ledger

import "time"

// Clock supplies ledger time. Staleness and rate-limit checks compare stored
// timestamps against Clock.Now at the moment of read, never via scheduled
// callbacks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
