package blockring

import (
	"context"
	"errors"
	"fmt"
)

// Write stores b in the next slot, blocking while the ring is full. The slot
// receives b.Data up to BlockSize, with any remaining slot storage zeroed,
// and a count of min(b.N, stored). Elements beyond BlockSize are dropped.
// Safe to call concurrently from many producer goroutines.
func (rb *RingBuffer[T]) Write(b Block[T]) {
	_ = rb.WriteContext(context.Background(), b)
}

// WriteSlice stores the first min(BlockSize, len(p)) elements of p in the next
// slot, blocking while the ring is full. It returns the number of elements
// stored; a value below len(p) means the tail of p was dropped.
func (rb *RingBuffer[T]) WriteSlice(p []T) int {
	n, _ := rb.WriteSliceContext(context.Background(), p)
	return n
}

// WriteContext is Write bounded by ctx. When ctx is done before a slot frees
// up, nothing is written and the context error is returned.
func (rb *RingBuffer[T]) WriteContext(ctx context.Context, b Block[T]) error {
	_, err := rb.write(ctx, b.Data, len(b.Elems()))
	return err
}

// WriteSliceContext is WriteSlice bounded by ctx. A deadline that expires
// before a slot frees up yields an error matching both ErrTimeout and
// context.DeadlineExceeded.
func (rb *RingBuffer[T]) WriteSliceContext(ctx context.Context, p []T) (int, error) {
	return rb.write(ctx, p, len(p))
}

// write copies data into the next slot and records the first valid elements
// of it as the slot's count. Slot storage past data is zeroed so a read never
// sees what an earlier write left behind.
func (rb *RingBuffer[T]) write(ctx context.Context, data []T, valid int) (int, error) {
	if err := rb.free.acquire(ctx); err != nil {
		rb.stats.writeTimeouts.Add(1)
		return 0, wrapContextErr(err)
	}

	rb.mu.Lock()
	s := &rb.slots[rb.writeIndex]
	stored := copy(s.data, data)
	clear(s.data[stored:])
	n := min(valid, stored)
	s.n = n
	rb.writeIndex = (rb.writeIndex + 1) % rb.blocks
	rb.filled++
	rb.mu.Unlock()

	rb.avail.release()

	rb.stats.writes.Add(1)
	if dropped := valid - n; dropped > 0 {
		rb.stats.truncated.Add(1)
		rb.stats.droppedElems.Add(uint64(dropped))
		rb.logger.Debug("block truncated", "len", valid, "stored", n)
	}
	return n, nil
}

func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
