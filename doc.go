/*
Package blockring provides a bounded, thread-safe circular buffer of
fixed-size blocks for handing bursty array-shaped data (bytes, records)
from producer goroutines to consumer goroutines.

The ring owns a fixed number of slots, each able to hold up to BlockSize
elements plus a count of how many are valid. Two counting semaphores track
empty and filled slots: a producer waits for an empty slot, a consumer waits
for a filled one. A mutex guards the cursors and the slot copy and is never
held while waiting, so producers apply backpressure without spinning and
never overwrite unread data.

Usage:

	rb := blockring.New[byte](8, 4096)

Producers write a slice (or a Block). Input longer than BlockSize is
truncated; the returned count tells how much was stored:

	if n := rb.WriteSlice(chunk); n < len(chunk) {
		// chunk[n:] was dropped
	}

Consumers read into a Block, append into a Collection, or copy raw bytes:

	blk := rb.NewBlock()
	if rb.Read(&blk) {
		process(blk.Elems())
	}

	var out blockring.Slice[byte]
	rb.ReadAppend(&out)

	buf := make([]byte, 512)
	n, ok := blockring.ReadBytes(rb, buf)

Cancellation:

The ring has no close operation. Callers that must stay responsive use the
timed or context variants and check their own stop signal between attempts:

	for ctx.Err() == nil {
		if rb.ReadFor(&blk, 100*time.Millisecond) {
			process(blk.Elems())
		}
	}

Streams:

Stream adapts a byte ring to io.Reader and io.Writer for network or file
plumbing:

	s := blockring.NewStream(ctx, rb)
	go io.Copy(s, src)
	io.Copy(dst, s)
*/
package blockring
