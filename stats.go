package blockring

import "sync/atomic"

type stats struct {
	writes        atomic.Uint64
	reads         atomic.Uint64
	truncated     atomic.Uint64
	droppedElems  atomic.Uint64
	writeTimeouts atomic.Uint64
	readTimeouts  atomic.Uint64

	invariantViolations atomic.Uint64
}

// Stats is a point-in-time view of a RingBuffer's activity counters.
type Stats struct {
	Writes       uint64 // successful writes
	Reads        uint64 // successful reads
	Truncated    uint64 // writes that dropped elements beyond BlockSize
	DroppedElems uint64 // total elements dropped by truncation

	// WriteTimeouts and ReadTimeouts count operations that gave up because
	// their context ended or their timeout expired.
	WriteTimeouts uint64
	ReadTimeouts  uint64

	InvariantViolations uint64

	Filled int // slots holding unread data
	Free   int // write permits available
}

// Stats retrieves the current statistics of the RingBuffer.
func (rb *RingBuffer[T]) Stats() Stats {
	return Stats{
		Writes:              rb.stats.writes.Load(),
		Reads:               rb.stats.reads.Load(),
		Truncated:           rb.stats.truncated.Load(),
		DroppedElems:        rb.stats.droppedElems.Load(),
		WriteTimeouts:       rb.stats.writeTimeouts.Load(),
		ReadTimeouts:        rb.stats.readTimeouts.Load(),
		InvariantViolations: rb.stats.invariantViolations.Load(),
		Filled:              rb.Len(),
		Free:                rb.Free(),
	}
}
