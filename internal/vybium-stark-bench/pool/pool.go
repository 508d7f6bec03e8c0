// Package pool sizes and owns the worker goroutines a proving backend runs on.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by ParallelFor once the pool has been closed
var ErrClosed = errors.New("pool: closed")

// liveWorkers counts worker goroutines across every pool in the process
var liveWorkers atomic.Int64

// LiveWorkers returns the number of worker goroutines still running in the process
func LiveWorkers() int {
	return int(liveWorkers.Load())
}

type task struct {
	lo, hi int
	fn     func(lo, hi int) error
	done   chan<- error
}

// Pool is a fixed set of worker goroutines. A pool is created per trial and
// closed before the next trial starts.
type Pool struct {
	size   int
	logger *zap.Logger

	tasks   chan task
	stopCh  chan struct{}
	workers errgroup.Group
	live    atomic.Int64

	// mu is held for reading by ParallelFor and for writing by Close
	mu         sync.RWMutex
	closed     bool
	prevProcs  int
	setProcs   bool
	processed  atomic.Int64
	chunkRatio int
}

// Option customises a pool
type Option func(*Pool)

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithoutGOMAXPROCS leaves the runtime's GOMAXPROCS untouched
func WithoutGOMAXPROCS() Option {
	return func(p *Pool) {
		p.setProcs = false
	}
}

// WithChunkRatio sets how many chunks per worker ParallelFor splits a range into
func WithChunkRatio(ratio int) Option {
	return func(p *Pool) {
		if ratio > 0 {
			p.chunkRatio = ratio
		}
	}
}

// Size resolves a requested thread count: values <= 0 select every core,
// larger values are clamped to [1, NumCPU]
func Size(threadCount int) int {
	n := runtime.NumCPU()
	if threadCount <= 0 || threadCount > n {
		return n
	}
	return threadCount
}

// Configure starts a pool of Size(threadCount) workers. While the pool is
// open GOMAXPROCS is set to the pool size.
func Configure(threadCount int, opts ...Option) (*Pool, error) {
	p := &Pool{
		size:       Size(threadCount),
		logger:     zap.NewNop(),
		stopCh:     make(chan struct{}),
		setProcs:   true,
		chunkRatio: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.size < 1 {
		return nil, fmt.Errorf("pool: invalid size %d", p.size)
	}

	p.tasks = make(chan task, p.size*p.chunkRatio)
	if p.setProcs {
		p.prevProcs = runtime.GOMAXPROCS(p.size)
	}

	for i := 0; i < p.size; i++ {
		p.live.Add(1)
		liveWorkers.Add(1)
		p.workers.Go(func() error {
			p.run(i)
			return nil
		})
	}

	p.logger.Debug("pool configured",
		zap.Int("requested", threadCount),
		zap.Int("workers", p.size),
		zap.Int("prev_gomaxprocs", p.prevProcs))
	return p, nil
}

// run is the worker main loop
func (p *Pool) run(id int) {
	defer func() {
		p.live.Add(-1)
		liveWorkers.Add(-1)
	}()

	for {
		select {
		case <-p.stopCh:
			return
		case t := <-p.tasks:
			t.done <- p.execute(id, t)
		}
	}
}

func (p *Pool) execute(id int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool: worker %d panicked on [%d,%d): %v", id, t.lo, t.hi, r)
		}
	}()
	p.processed.Add(1)
	return t.fn(t.lo, t.hi)
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Live returns the number of this pool's workers still running
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Processed returns the number of chunks executed so far
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// ParallelFor splits [0, n) into contiguous chunks, runs fn on the workers
// and waits for all of them. The first error wins; a worker panic is
// returned as an error. Chunks not yet started are skipped once ctx is done
// or an error has been seen.
func (p *Pool) ParallelFor(ctx context.Context, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	chunks := p.size * p.chunkRatio
	if chunks > n {
		chunks = n
	}
	step := (n + chunks - 1) / chunks

	// at most one outstanding chunk per worker
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for lo := 0; lo < n; lo += step {
		hi := min(lo+step, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			done := make(chan error, 1)
			p.tasks <- task{lo: lo, hi: hi, fn: fn, done: done}
			return <-done
		})
	}
	return g.Wait()
}

// Close stops every worker, waits for them to exit and restores GOMAXPROCS.
// Calling Close more than once is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	close(p.stopCh)
	_ = p.workers.Wait()
	if p.setProcs && p.prevProcs > 0 {
		runtime.GOMAXPROCS(p.prevProcs)
	}

	p.logger.Debug("pool closed",
		zap.Int("workers", p.size),
		zap.Int64("chunks", p.processed.Load()))
	return nil
}
