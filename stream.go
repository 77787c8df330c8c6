package blockring

import (
	"context"
	"io"
	"sync"
)

var (
	_ io.Reader = (*Stream)(nil)
	_ io.Writer = (*Stream)(nil)
)

// Stream reads and writes a byte ring as a continuous byte stream.
//
// Write splits its input into BlockSize chunks, one slot per chunk. Read
// drains slots in order and keeps what did not fit in p for the next call.
// Blocking calls fail once ctx is done; an expired deadline yields an error
// matching both ErrTimeout and context.DeadlineExceeded.
type Stream struct {
	ctx context.Context
	rb  *RingBuffer[byte]

	rmu     sync.Mutex // serialises readers so a partial slot is not split
	block   Block[byte]
	pending []byte
}

// NewStream returns a Stream over rb bounded by ctx.
func NewStream(ctx context.Context, rb *RingBuffer[byte]) *Stream {
	return &Stream{
		ctx:   ctx,
		rb:    rb,
		block: rb.NewBlock(),
	}
}

// Write stores p in consecutive slots. It returns the number of bytes stored
// before ctx ended, if it did.
func (s *Stream) Write(p []byte) (int, error) {
	var wn int
	for len(p) > 0 {
		n, err := s.rb.WriteSliceContext(s.ctx, p)
		wn += n
		if err != nil {
			return wn, err
		}
		p = p[n:]
	}
	return wn, nil
}

// Read fills p from the buffered remainder of the last slot or, when there is
// none, from the next slot, blocking until one is written.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.rmu.Lock()
	defer s.rmu.Unlock()

	// empty slots carry no bytes, skip them
	for len(s.pending) == 0 {
		if err := s.rb.ReadContext(s.ctx, &s.block); err != nil {
			return 0, err
		}
		s.pending = s.block.Elems()
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Buffered returns the number of bytes of the current slot not yet returned
// by Read.
func (s *Stream) Buffered() int {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return len(s.pending)
}
