package reverse

import "time"

// backoff is the reconnect delay schedule: doubles on each consecutive
// failure, capped, reset to the initial delay on a successful open.
type backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, next: initial}
}

// Next returns the current delay and advances the schedule.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset rewinds the schedule to the initial delay.
func (b *backoff) Reset() {
	b.next = b.initial
}
