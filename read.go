package blockring

import (
	"context"
	"time"
)

// Byte is satisfied by byte and by types defined over it.
type Byte interface {
	~byte
}

// Read copies the next filled slot into dst, blocking until one is available.
// dst.Data is grown to BlockSize if needed and receives the whole slot
// storage; dst.N is set to the slot's element count.
// Safe to call concurrently from many consumer goroutines.
func (rb *RingBuffer[T]) Read(dst *Block[T]) bool {
	return rb.ReadContext(context.Background(), dst) == nil
}

// ReadFor is Read bounded by timeout. It returns false, leaving the ring
// untouched, when no slot was filled in time. A timeout <= 0 makes a single
// non-blocking attempt.
func (rb *RingBuffer[T]) ReadFor(dst *Block[T], timeout time.Duration) bool {
	return rb.readFor(timeout, func(s *slot[T]) {
		rb.growBlock(dst)
		copySlot(dst, s)
	}) == nil
}

// ReadContext is Read bounded by ctx.
func (rb *RingBuffer[T]) ReadContext(ctx context.Context, dst *Block[T]) error {
	return rb.read(ctx, func(s *slot[T]) {
		rb.growBlock(dst)
		copySlot(dst, s)
	})
}

// ReadAppend appends the valid elements of the next filled slot to dst,
// blocking until one is available. If dst implements Reserver, room for the
// elements is reserved first. dst is called with the ring locked and must not
// use the ring itself.
func (rb *RingBuffer[T]) ReadAppend(dst Collection[T]) bool {
	return rb.ReadAppendContext(context.Background(), dst) == nil
}

// ReadAppendFor is ReadAppend bounded by timeout.
func (rb *RingBuffer[T]) ReadAppendFor(dst Collection[T], timeout time.Duration) bool {
	return rb.readFor(timeout, func(s *slot[T]) {
		appendSlot(dst, s)
	}) == nil
}

// ReadAppendContext is ReadAppend bounded by ctx.
func (rb *RingBuffer[T]) ReadAppendContext(ctx context.Context, dst Collection[T]) error {
	return rb.read(ctx, func(s *slot[T]) {
		appendSlot(dst, s)
	})
}

// ReadBytes copies min(len(p), N) elements of the next filled slot into p and
// returns the number copied, blocking until a slot is available. The rest of
// the slot is discarded.
func ReadBytes[B Byte](rb *RingBuffer[B], p []B) (int, bool) {
	n, err := ReadBytesContext(context.Background(), rb, p)
	return n, err == nil
}

// ReadBytesFor is ReadBytes bounded by timeout.
func ReadBytesFor[B Byte](rb *RingBuffer[B], p []B, timeout time.Duration) (int, bool) {
	var n int
	err := rb.readFor(timeout, func(s *slot[B]) {
		n = copy(p, s.data[:s.n])
	})
	return n, err == nil
}

// ReadBytesContext is ReadBytes bounded by ctx.
func ReadBytesContext[B Byte](ctx context.Context, rb *RingBuffer[B], p []B) (int, error) {
	var n int
	err := rb.read(ctx, func(s *slot[B]) {
		n = copy(p, s.data[:s.n])
	})
	return n, err
}

func (rb *RingBuffer[T]) read(ctx context.Context, fn func(s *slot[T])) error {
	if err := rb.avail.acquire(ctx); err != nil {
		rb.stats.readTimeouts.Add(1)
		return wrapContextErr(err)
	}
	return rb.consume(fn)
}

func (rb *RingBuffer[T]) readFor(timeout time.Duration, fn func(s *slot[T])) error {
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return rb.read(ctx, fn)
	}
	if !rb.avail.tryAcquire() {
		rb.stats.readTimeouts.Add(1)
		return ErrTimeout
	}
	return rb.consume(fn)
}

// consume hands the slot at the read cursor to fn and frees it.
// The caller must hold a read permit. The slot counts as read even if fn
// panics; the panic is passed on with the ring unlocked and consistent.
func (rb *RingBuffer[T]) consume(fn func(s *slot[T])) error {
	rb.mu.Lock()
	if rb.filled == 0 {
		// filled is raised under mu before a permit is released, so a permit
		// holder always finds a slot. Give the permit back to keep the two
		// counters summing to Cap.
		ri, wi := rb.readIndex, rb.writeIndex
		rb.mu.Unlock()
		rb.avail.release()
		rb.stats.invariantViolations.Add(1)
		rb.logger.Error("read admitted with no filled slot", "readIndex", ri, "writeIndex", wi)
		return ErrInvariant
	}

	// deferred in reverse: advance, unlock, then hand the slot to producers
	defer rb.free.release()
	defer rb.mu.Unlock()
	defer func() {
		rb.readIndex = (rb.readIndex + 1) % rb.blocks
		rb.filled--
	}()

	fn(&rb.slots[rb.readIndex])
	rb.stats.reads.Add(1)
	return nil
}

// growBlock is called after admission so a failed read leaves dst alone.
func (rb *RingBuffer[T]) growBlock(dst *Block[T]) {
	if cap(dst.Data) < rb.blockSize {
		dst.Data = make([]T, rb.blockSize)
		return
	}
	dst.Data = dst.Data[:rb.blockSize]
}

func copySlot[T any](dst *Block[T], s *slot[T]) {
	copy(dst.Data, s.data)
	dst.N = s.n
}

func appendSlot[T any](dst Collection[T], s *slot[T]) {
	if r, ok := dst.(Reserver); ok {
		r.Reserve(s.n)
	}
	dst.Append(s.data[:s.n]...)
}
