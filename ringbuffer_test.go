package blockring

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPanicsOnBadSize(t *testing.T) {
	for _, tc := range [][2]int{{0, 1}, {1, 0}, {-1, 4}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d, %d) did not panic", tc[0], tc[1])
				}
			}()
			New[int](tc[0], tc[1])
		}()
	}
}

func TestNewInitialState(t *testing.T) {
	rb := New[int](5, 10)

	if rb.Cap() != 5 || rb.BlockSize() != 10 {
		t.Fatalf("expected cap=5 blockSize=10, got cap=%d blockSize=%d", rb.Cap(), rb.BlockSize())
	}
	if !rb.IsEmpty() {
		t.Fatalf("expected new ring to be empty")
	}
	if rb.Free() != 5 || rb.Len() != 0 {
		t.Fatalf("expected free=5 len=0, got free=%d len=%d", rb.Free(), rb.Len())
	}
	for i, s := range rb.slots {
		if len(s.data) != 10 || cap(s.data) != 10 {
			t.Fatalf("slot %d: expected len=cap=10, got len=%d cap=%d", i, len(s.data), cap(s.data))
		}
	}
}

// Blocks=2, BlockSize=3: two writes fit, the third waits for a read.
func TestTwoSlotScenario(t *testing.T) {
	rb := New[int](2, 3)

	if n := rb.WriteSlice([]int{1, 2, 3}); n != 3 {
		t.Fatalf("expected 3 stored, got %d", n)
	}
	if n := rb.WriteSlice([]int{4, 5}); n != 2 {
		t.Fatalf("expected 2 stored, got %d", n)
	}

	third := make(chan int)
	go func() {
		third <- rb.WriteSlice([]int{7, 8, 9})
	}()

	select {
	case <-third:
		t.Fatalf("third write did not block on a full ring")
	case <-time.After(20 * time.Millisecond):
	}

	blk := rb.NewBlock()
	if !rb.Read(&blk) {
		t.Fatalf("first read failed")
	}
	if blk.N != 3 || !slices.Equal(blk.Data, []int{1, 2, 3}) {
		t.Fatalf("expected {3 [1 2 3]}, got %v", blk)
	}

	select {
	case n := <-third:
		if n != 3 {
			t.Fatalf("expected third write to store 3, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("third write not released by read")
	}

	if !rb.Read(&blk) {
		t.Fatalf("second read failed")
	}
	if blk.N != 2 || !slices.Equal(blk.Elems(), []int{4, 5}) {
		t.Fatalf("expected {2 [4 5 _]}, got %v", blk)
	}

	if !rb.Read(&blk) {
		t.Fatalf("third read failed")
	}
	if !slices.Equal(blk.Elems(), []int{7, 8, 9}) {
		t.Fatalf("expected [7 8 9], got %v", blk.Elems())
	}
	if !rb.IsEmpty() {
		t.Fatalf("expected empty ring")
	}
}

func TestCapacityBound(t *testing.T) {
	const blocks = 4
	rb := New[int](blocks, 2)

	for i := 0; i < blocks; i++ {
		if err := rb.WriteContext(context.Background(), Block[int]{N: 1, Data: []int{i}}); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := rb.WriteSliceContext(ctx, []int{99})
	if n != 0 {
		t.Fatalf("expected nothing stored on full ring, got %d", n)
	}
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if rb.Len() != blocks || rb.Free() != 0 {
		t.Fatalf("expected len=%d free=0, got len=%d free=%d", blocks, rb.Len(), rb.Free())
	}

	// a read makes room again
	var blk Block[int]
	if !rb.Read(&blk) || blk.Elems()[0] != 0 {
		t.Fatalf("expected to read 0, got %v", blk)
	}
	if n := rb.WriteSlice([]int{99}); n != 1 {
		t.Fatalf("expected write to succeed after read, got %d", n)
	}
	if st := rb.Stats(); st.WriteTimeouts != 1 {
		t.Fatalf("expected 1 write timeout, got %d", st.WriteTimeouts)
	}
}

func TestWriteContextCanceled(t *testing.T) {
	rb := New[int](1, 1)
	rb.WriteSlice([]int{1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rb.WriteContext(ctx, Block[int]{N: 1, Data: []int{2}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("cancellation must not be reported as timeout")
	}
}

func TestTruncation(t *testing.T) {
	rb := New[int](2, 3)

	src := []int{10, 20, 30, 40, 50}
	if n := rb.WriteSlice(src); n != 3 {
		t.Fatalf("expected truncation to 3, got %d", n)
	}

	var blk Block[int]
	if !rb.Read(&blk) {
		t.Fatalf("read failed")
	}
	if blk.N != 3 || !slices.Equal(blk.Elems(), src[:3]) {
		t.Fatalf("expected %v, got %v", src[:3], blk.Elems())
	}

	st := rb.Stats()
	if st.Truncated != 1 || st.DroppedElems != 2 {
		t.Fatalf("expected truncated=1 dropped=2, got truncated=%d dropped=%d", st.Truncated, st.DroppedElems)
	}
}

func TestWriteBlockTruncatesToBlockSize(t *testing.T) {
	rb := New[byte](1, 2)

	rb.Write(Block[byte]{N: 4, Data: []byte("abcd")})

	buf := make([]byte, 8)
	n, ok := ReadBytes(rb, buf)
	if !ok || string(buf[:n]) != "ab" {
		t.Fatalf("expected %q, got %q ok=%v", "ab", buf[:n], ok)
	}
}

func TestWriteOverwritesWholeSlot(t *testing.T) {
	rb := New[int](1, 3)
	var out Block[int]

	rb.WriteSlice([]int{1, 2, 3})
	rb.Read(&out)

	rb.Write(Block[int]{N: 1, Data: []int{9, 8, 7}})
	if !rb.Read(&out) {
		t.Fatalf("read failed")
	}
	if out.N != 1 || !slices.Equal(out.Data, []int{9, 8, 7}) {
		t.Fatalf("expected N=1 Data=[9 8 7], got %+v", out)
	}

	// shorter writes zero the rest of the slot
	rb.WriteSlice([]int{5})
	if !rb.Read(&out) {
		t.Fatalf("read failed")
	}
	if out.N != 1 || !slices.Equal(out.Data, []int{5, 0, 0}) {
		t.Fatalf("expected N=1 Data=[5 0 0], got %+v", out)
	}

	rb.Write(Block[int]{N: 2, Data: []int{4, 4}})
	if !rb.Read(&out) {
		t.Fatalf("read failed")
	}
	if out.N != 2 || !slices.Equal(out.Data, []int{4, 4, 0}) {
		t.Fatalf("expected N=2 Data=[4 4 0], got %+v", out)
	}
	if st := rb.Stats(); st.Truncated != 0 {
		t.Fatalf("no write was truncated, got %d", st.Truncated)
	}
}

func TestRoundTrip(t *testing.T) {
	rb := New[string](3, 4)

	in := rb.NewBlock()
	in.N = 3
	copy(in.Data, []string{"a", "b", "c"})
	rb.Write(in)

	// the ring holds a copy, changing the source must not leak through
	in.Data[0] = "z"

	var out Block[string]
	if !rb.Read(&out) {
		t.Fatalf("read failed")
	}
	if out.N != 3 || !slices.Equal(out.Elems(), []string{"a", "b", "c"}) {
		t.Fatalf("expected [a b c], got %v", out.Elems())
	}
	if len(out.Data) != rb.BlockSize() {
		t.Fatalf("expected read block of size %d, got %d", rb.BlockSize(), len(out.Data))
	}
}

// Basic sanity: sequential write/read of many blocks through a small ring.
func TestSequentialFIFO(t *testing.T) {
	const (
		blocks = 8
		N      = 10_000
	)

	rb := New[int](blocks, 2)
	var blk Block[int]

	for i := 0; i < N; i += blocks {
		for j := i; j < i+blocks; j++ {
			rb.WriteSlice([]int{j, -j})
		}
		for j := i; j < i+blocks; j++ {
			if !rb.Read(&blk) {
				t.Fatalf("read failed at %d", j)
			}
			if e := blk.Elems(); e[0] != j || e[1] != -j {
				t.Fatalf("expected [%d %d], got %v (FIFO violated)", j, -j, e)
			}
		}
	}

	if rb.readIndex != rb.writeIndex {
		t.Fatalf("expected cursors to meet, got read=%d write=%d", rb.readIndex, rb.writeIndex)
	}
}

func TestFIFOSingleProducerSingleConsumer(t *testing.T) {
	const N = 20_000
	rb := New[int](4, 1)

	go func() {
		for i := 0; i < N; i++ {
			rb.WriteSlice([]int{i})
		}
	}()

	var blk Block[int]
	for i := 0; i < N; i++ {
		if !rb.Read(&blk) {
			t.Fatalf("read failed at %d", i)
		}
		if v := blk.Elems()[0]; v != i {
			t.Fatalf("expected %d, got %d (FIFO violated)", i, v)
		}
	}
}

func TestReadForTimeout(t *testing.T) {
	rb := New[int](2, 2)
	timeout := 20 * time.Millisecond

	var blk Block[int]
	start := time.Now()
	if rb.ReadFor(&blk, timeout) {
		t.Fatalf("expected timeout on empty ring")
	}
	if elapsed := time.Since(start); elapsed < timeout {
		t.Fatalf("returned after %v, before the %v timeout", elapsed, timeout)
	}
	if rb.readIndex != 0 || rb.writeIndex != 0 {
		t.Fatalf("timeout moved cursors: read=%d write=%d", rb.readIndex, rb.writeIndex)
	}
	if rb.Free()+rb.Len() != rb.Cap() {
		t.Fatalf("counter invariant broken: free=%d len=%d", rb.Free(), rb.Len())
	}
	if st := rb.Stats(); st.ReadTimeouts != 1 {
		t.Fatalf("expected 1 read timeout, got %d", st.ReadTimeouts)
	}
}

func TestReadForZeroTimeoutIsNonBlocking(t *testing.T) {
	rb := New[int](2, 2)

	var blk Block[int]
	if rb.ReadFor(&blk, 0) {
		t.Fatalf("expected no data")
	}

	rb.WriteSlice([]int{7})
	if !rb.ReadFor(&blk, 0) || blk.Elems()[0] != 7 {
		t.Fatalf("expected immediate read of 7, got %v", blk)
	}
}

func TestReadForWakesOnWrite(t *testing.T) {
	rb := New[int](1, 1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		rb.WriteSlice([]int{42})
	}()

	var blk Block[int]
	if !rb.ReadFor(&blk, time.Second) {
		t.Fatalf("expected read to be woken by write")
	}
	if blk.Elems()[0] != 42 {
		t.Fatalf("expected 42, got %v", blk.Elems())
	}
}

func TestReadContextCanceled(t *testing.T) {
	rb := New[int](1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	var blk Block[int]
	if err := rb.ReadContext(ctx, &blk); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// With all slots filled the cursors are equal, exactly as when empty.
func TestFullRingIsNotEmpty(t *testing.T) {
	rb := New[int](3, 1)
	for i := 0; i < 3; i++ {
		rb.WriteSlice([]int{i})
	}

	if rb.readIndex != rb.writeIndex {
		t.Fatalf("expected cursors to be equal on a full ring")
	}
	if rb.IsEmpty() {
		t.Fatalf("full ring reported empty")
	}

	var blk Block[int]
	for i := 0; i < 3; i++ {
		if !rb.ReadFor(&blk, 0) {
			t.Fatalf("read %d failed on a full ring", i)
		}
	}
	if !rb.IsEmpty() {
		t.Fatalf("drained ring not reported empty")
	}
	if st := rb.Stats(); st.InvariantViolations != 0 {
		t.Fatalf("unexpected invariant violations: %d", st.InvariantViolations)
	}
}

func TestStrayReadPermitIsReturned(t *testing.T) {
	rb := New[int](2, 1)

	// forge a permit with no slot behind it
	rb.avail.release()

	var blk Block[int]
	err := rb.ReadContext(context.Background(), &blk)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if rb.avail.value() != 1 {
		t.Fatalf("expected the permit to be given back, got %d", rb.avail.value())
	}
	if rb.readIndex != 0 {
		t.Fatalf("read cursor moved: %d", rb.readIndex)
	}
	if st := rb.Stats(); st.InvariantViolations != 1 || st.Reads != 0 {
		t.Fatalf("expected 1 violation and 0 reads, got %+v", st)
	}
}

// Concurrent test: many producers, many consumers.
// Checks that all values [0..N) appear exactly once.
func TestConcurrent(t *testing.T) {
	const (
		blocks      = 64
		N           = 100_000
		producers   = 8
		consumers   = 4
		perProducer = N / producers
	)

	rb := New[int](blocks, 1)
	seen := make([]int32, N)
	var consumed atomic.Int64

	var wg sync.WaitGroup

	// Consumers
	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			var blk Block[int]
			for consumed.Load() < N {
				if !rb.ReadFor(&blk, 10*time.Millisecond) {
					continue
				}
				v := blk.Elems()[0]
				if v < 0 || v >= N {
					t.Errorf("consumer: out-of-range value %d", v)
					continue
				}
				atomic.AddInt32(&seen[v], 1)
				consumed.Add(1)
			}
		}()
	}

	// Producers
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				rb.WriteSlice([]int{i})
			}
		}(p*perProducer, (p+1)*perProducer)
	}

	wg.Wait()

	for i := 0; i < N; i++ {
		if seen[i] != 1 {
			t.Fatalf("value %d seen %d times (expected 1)", i, seen[i])
		}
	}
	if rb.Free()+rb.Len() != rb.Cap() {
		t.Fatalf("counter invariant broken: free=%d len=%d cap=%d", rb.Free(), rb.Len(), rb.Cap())
	}
	if st := rb.Stats(); st.Writes != N || st.Reads != N {
		t.Fatalf("expected %d writes and reads, got %+v", N, st)
	}
}

// Benchmark: single producer, single consumer.
func BenchmarkRing_1P1C(b *testing.B) {
	rb := New[byte](64, 512)
	payload := make([]byte, 512)

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 512)
		for i := 0; i < b.N; i++ {
			ReadBytes(rb, buf)
		}
		close(done)
	}()

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rb.WriteSlice(payload)
	}
	<-done
	b.StopTimer()
}

// Benchmark: many producers, many consumers.
func BenchmarkRing_MPMC(b *testing.B) {
	rb := New[int](1024, 16)
	payload := make([]int, 16)

	var wg sync.WaitGroup
	var remaining atomic.Int64
	remaining.Store(int64(b.N))

	const consumers = 8
	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			var blk Block[int]
			for remaining.Load() > 0 {
				if rb.ReadFor(&blk, time.Millisecond) {
					remaining.Add(-1)
				}
			}
		}()
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rb.WriteSlice(payload)
		}
	})
	wg.Wait()
	b.StopTimer()
}
