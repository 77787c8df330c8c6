package blockring

import (
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrTimeout   = fmt.Errorf("timeout")
	ErrInvariant = fmt.Errorf("read admitted with no filled slot")
)

// slot is one fixed-capacity storage unit of the ring.
type slot[T any] struct {
	n    int // number of valid elements in data
	data []T // len(data) == blockSize, carved from the ring's backing array
}

// Block is the unit transferred between a write and a read.
// N is the number of valid elements at the front of Data.
type Block[T any] struct {
	N    int
	Data []T
}

// Elems returns the valid prefix of the block.
func (b Block[T]) Elems() []T {
	n := min(max(b.N, 0), len(b.Data))
	return b.Data[:n]
}

// Clone returns a copy of b that shares no storage with it.
func (b Block[T]) Clone() Block[T] {
	data := make([]T, len(b.Data))
	copy(data, b.Data)
	return Block[T]{N: b.N, Data: data}
}

// RingBuffer is a bounded circular buffer of fixed-size blocks.
//
// Producers are admitted by a counter of empty slots, consumers by a counter of
// filled slots. A single mutex guards the cursors and the slot copies and is
// never held while waiting on either counter.
type RingBuffer[T any] struct {
	blocks    int
	blockSize int

	mu         sync.Mutex
	slots      []slot[T]
	writeIndex int // next slot to write
	readIndex  int // next slot to read
	filled     int // written and not yet read slots

	free  *counter // write admission, starts at blocks
	avail *counter // read availability, starts at 0

	stats  stats
	logger *slog.Logger
}

// Option configures a RingBuffer.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for truncation and invariant reports.
// By default the buffer logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a ring of blocks slots holding up to blockSize elements each.
// Both values must be > 0.
func New[T any](blocks, blockSize int, opts ...Option) *RingBuffer[T] {
	if blocks <= 0 || blockSize <= 0 {
		panic("blocks and blockSize must be > 0")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	backing := make([]T, blocks*blockSize)
	slots := make([]slot[T], blocks)
	for i := range slots {
		slots[i].data = backing[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
	}

	return &RingBuffer[T]{
		blocks:    blocks,
		blockSize: blockSize,
		slots:     slots,
		free:      newCounter(int64(blocks), int64(blocks)),
		avail:     newCounter(int64(blocks), 0),
		logger:    o.logger.With("component", "blockring"),
	}
}

// NewBlock returns an empty block sized for this ring.
func (rb *RingBuffer[T]) NewBlock() Block[T] {
	return Block[T]{Data: make([]T, rb.blockSize)}
}

// Cap returns the number of slots.
func (rb *RingBuffer[T]) Cap() int {
	return rb.blocks
}

// BlockSize returns the per-slot element capacity.
func (rb *RingBuffer[T]) BlockSize() int {
	return rb.blockSize
}

// Len returns the number of slots holding unread data.
// The value is a snapshot and may be stale by the time it is used.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.filled
}

// Free returns the number of slots a producer may currently be admitted to.
// Exact only while no operation is in flight.
func (rb *RingBuffer[T]) Free() int {
	return int(rb.free.value())
}

// IsEmpty reports whether no slot holds unread data.
//
// Comparing the cursors cannot tell an empty ring from a full one, since they
// are equal in both states, so the check uses the filled-slot count instead.
// Like Len, the answer is only a hint under concurrent use.
func (rb *RingBuffer[T]) IsEmpty() bool {
	return rb.Len() == 0
}
