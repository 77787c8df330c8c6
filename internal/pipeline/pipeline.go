// Package pipeline drives a blockring.RingBuffer with producer and consumer
// goroutines that stop cooperatively when their context ends.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aradilov/blockring"
	"github.com/aradilov/blockring/internal/config"
	"github.com/google/uuid"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
)

// Summary is the outcome of a Run.
type Summary struct {
	Sent      uint64 // records written to the ring
	Truncated uint64 // records that did not fit in a slot
	Received  uint64 // records decoded by consumers
	Corrupt   uint64 // slots that did not decode or verify
	Drained   uint64 // records left in the ring at shutdown and read afterwards

	Ring blockring.Stats
}

type counters struct {
	sent, truncated, received, corrupt, drained atomic.Uint64
}

// Producer writes one record per interval until ctx ends.
type Producer struct {
	ID          uuid.UUID
	Ring        *blockring.RingBuffer[byte]
	Interval    time.Duration
	Jitter      time.Duration
	PayloadSize int
	Logger      *slog.Logger

	counters *counters
}

// Run produces records until ctx is done. Cancellation is not an error.
func (p *Producer) Run(ctx context.Context) error {
	logger := p.Logger.With("producer", p.ID.String())
	logger.Info("producer started")
	defer logger.Info("producer stopped")

	for seq := uint64(0); ctx.Err() == nil; seq++ {
		data, err := Encode(Record{
			Producer: p.ID.String(),
			Seq:      seq,
			At:       time.Now(),
			Payload:  payload(seq, p.PayloadSize),
		})
		if err != nil {
			return err
		}

		n, err := p.Ring.WriteSliceContext(ctx, data)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("producer %s: write record %d: %w", p.ID, seq, err)
		}
		p.counters.sent.Add(1)
		if n < len(data) {
			p.counters.truncated.Add(1)
			logger.Warn("record truncated", "seq", seq, "size", len(data), "stored", n)
		} else {
			logger.Debug("record sent", "seq", seq, "size", n)
		}

		if !sleep(ctx, p.Interval+p.jitter()) {
			return nil
		}
	}
	return nil
}

func (p *Producer) jitter() time.Duration {
	ms := uint32(p.Jitter / time.Millisecond)
	if ms == 0 {
		return 0
	}
	return time.Duration(fastrand.Uint32n(ms+1)) * time.Millisecond
}

// Consumer polls the ring with a bounded wait and checks ctx between
// attempts, so it stops within ReadTimeout of cancellation.
type Consumer struct {
	ID          int
	Ring        *blockring.RingBuffer[byte]
	ReadTimeout time.Duration
	Logger      *slog.Logger

	counters *counters
}

// Run consumes records until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	logger := c.Logger.With("consumer", c.ID)
	logger.Info("consumer started")
	defer logger.Info("consumer stopped")

	blk := c.Ring.NewBlock()
	for ctx.Err() == nil {
		if !c.Ring.ReadFor(&blk, c.ReadTimeout) {
			continue
		}
		c.handle(logger, blk.Elems(), &c.counters.received)
	}
	return nil
}

func (c *Consumer) handle(logger *slog.Logger, data []byte, ok *atomic.Uint64) {
	rec, err := Decode(data)
	if err == nil && !rec.Verify() {
		err = fmt.Errorf("payload mismatch")
	}
	if err != nil {
		c.counters.corrupt.Add(1)
		logger.Warn("bad record", "size", len(data), "error", err)
		return
	}
	ok.Add(1)
	logger.Debug("record received", "from", rec.Producer, "seq", rec.Seq, "latency", time.Since(rec.At))
}

// Run builds a ring from cfg and runs cfg.Producers producers and
// cfg.Consumers consumers against it until ctx ends or cfg.Duration elapses.
// Records still in the ring afterwards are drained and counted separately.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ring := blockring.New[byte](cfg.Blocks, cfg.BlockSize, blockring.WithLogger(logger))
	cnt := &counters{}

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	logger.Info("pipeline started",
		"blocks", cfg.Blocks, "blockSize", cfg.BlockSize,
		"producers", cfg.Producers, "consumers", cfg.Consumers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Consumers; i++ {
		c := &Consumer{ID: i, Ring: ring, ReadTimeout: cfg.ReadTimeout, Logger: logger, counters: cnt}
		g.Go(func() error { return c.Run(gctx) })
	}
	for i := 0; i < cfg.Producers; i++ {
		p := &Producer{
			ID:          uuid.New(),
			Ring:        ring,
			Interval:    cfg.ProduceInterval,
			Jitter:      cfg.Jitter,
			PayloadSize: cfg.PayloadSize,
			Logger:      logger,
			counters:    cnt,
		}
		g.Go(func() error { return p.Run(gctx) })
	}
	err := g.Wait()

	drainer := &Consumer{ID: -1, Ring: ring, Logger: logger, counters: cnt}
	blk := ring.NewBlock()
	for ring.ReadFor(&blk, 0) {
		drainer.handle(logger, blk.Elems(), &cnt.drained)
	}

	s := Summary{
		Sent:      cnt.sent.Load(),
		Truncated: cnt.truncated.Load(),
		Received:  cnt.received.Load(),
		Corrupt:   cnt.corrupt.Load(),
		Drained:   cnt.drained.Load(),
		Ring:      ring.Stats(),
	}
	logger.Info("pipeline stopped",
		"sent", s.Sent, "received", s.Received, "drained", s.Drained,
		"truncated", s.Truncated, "corrupt", s.Corrupt)
	return s, err
}

// sleep waits for d or until ctx ends, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
