package domain

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// CardIDSource allocates unique, monotonically increasing card ids from the
// nanosecond clock, measured since the source was created rather than since
// the Unix epoch. Epoch nanoseconds exceed 2^53 and JSON clients parse ids as
// float64, which would round them; a process-relative id stays exactly
// representable for roughly 104 days of uptime. If two allocations land on
// the same nanosecond the later one is bumped past the earlier, so ids stay
// unique within the process.
type CardIDSource struct {
	clock clockwork.Clock
	epoch time.Time
	last  atomic.Int64
}

func NewCardIDSource(clock clockwork.Clock) *CardIDSource {
	return &CardIDSource{clock: clock, epoch: clock.Now()}
}

// Next returns the next card id. Always positive.
func (s *CardIDSource) Next() int64 {
	now := s.clock.Since(s.epoch).Nanoseconds()
	for {
		last := s.last.Load()
		id := now
		if id <= last {
			id = last + 1
		}
		if s.last.CompareAndSwap(last, id) {
			return id
		}
	}
}
