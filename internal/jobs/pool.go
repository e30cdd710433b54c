package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrPoolClosed completes handles whose batches were still queued at Shutdown.
var ErrPoolClosed = errors.New("jobs: pool closed")

// batch is a contiguous index range of one scheduled job.
type batch struct {
	handle     *Handle
	start, end int
	fn         func(i int) error
}

// Handle tracks one scheduled job. It completes when every batch has run or
// when the job is abandoned because of an error or pool shutdown.
type Handle struct {
	remaining atomic.Int64
	done      chan struct{}
	failed    atomic.Bool

	errOnce sync.Once
	err     error
}

func newHandle(batches int) *Handle {
	h := &Handle{done: make(chan struct{})}
	h.remaining.Store(int64(batches))
	if batches == 0 {
		close(h.done)
	}
	return h
}

// Completed returns a handle that is already complete with err.
func Completed(err error) *Handle {
	h := &Handle{done: make(chan struct{}), err: err}
	h.failed.Store(err != nil)
	close(h.done)
	return h
}

// IsCompleted reports whether the job has finished. It never blocks.
func (h *Handle) IsCompleted() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done is closed once the job has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job has finished and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the job's error, or nil if it has not failed (yet).
func (h *Handle) Err() error {
	if !h.IsCompleted() {
		return nil
	}
	return h.err
}

func (h *Handle) fail(err error) {
	h.errOnce.Do(func() {
		h.err = err
		h.failed.Store(true)
	})
}

// finish retires n batches and closes done when none are left.
func (h *Handle) finish(n int64) {
	if h.remaining.Add(-n) == 0 {
		close(h.done)
	}
}

// Pool runs scheduled jobs on a fixed set of goroutines.
type Pool struct {
	queue   chan batch
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // workers
	mu      sync.Mutex // guards closed and feeders.Add
	feeders sync.WaitGroup
	closed  bool
}

// NewPool starts workers goroutines fed from a queue of queueSize batches.
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan batch, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := range workers {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Schedule runs fn(i) for every i in [0,n) in batches of batchSize indices,
// starting only after the dependency after (nil for none) has completed. If
// after fails, fn never runs and the returned handle carries after's error.
//
// Schedule does not block; batches are queued from a feeder goroutine.
func (p *Pool) Schedule(after *Handle, n, batchSize int, fn func(i int) error) *Handle {
	if batchSize < 1 {
		batchSize = 1
	}
	batches := (n + batchSize - 1) / batchSize
	if batches == 0 && after == nil {
		return newHandle(0)
	}
	h := newHandle(batches)
	if batches == 0 {
		// Nothing to run, but the handle must not complete before its dependency.
		h = newHandle(1)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Completed(ErrPoolClosed)
	}
	p.feeders.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.feeders.Done()
		if after != nil {
			select {
			case <-after.Done():
			case <-p.ctx.Done():
				h.fail(ErrPoolClosed)
				h.finish(h.remaining.Load())
				return
			}
			if err := after.Err(); err != nil {
				h.fail(err)
				h.finish(h.remaining.Load())
				return
			}
		}
		if batches == 0 {
			h.finish(1)
			return
		}
		for b := range batches {
			start := b * batchSize
			end := min(start+batchSize, n)
			select {
			case p.queue <- batch{handle: h, start: start, end: end, fn: fn}:
			case <-p.ctx.Done():
				h.fail(ErrPoolClosed)
				h.finish(int64(batches - b))
				return
			}
		}
	}()
	return h
}

// Go runs fn once as a single-task job after the dependency after.
func (p *Pool) Go(after *Handle, fn func() error) *Handle {
	return p.Schedule(after, 1, 1, func(int) error { return fn() })
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case b := <-p.queue:
			p.run(id, b)
		case <-p.ctx.Done():
			// Drain what is already queued so no handle is left hanging.
			for {
				select {
				case b := <-p.queue:
					b.handle.fail(ErrPoolClosed)
					b.handle.finish(1)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(id int, b batch) {
	defer b.handle.finish(1)
	if b.handle.failed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("jobs: worker %d recovered panic: %v", id, r)
			b.handle.fail(errors.Wrap(fmt.Errorf("%v", r), "jobs: task panicked"))
		}
	}()
	for i := b.start; i < b.end; i++ {
		if err := b.fn(i); err != nil {
			b.handle.fail(err)
			return
		}
	}
}

// Shutdown cancels queued work, waits for running batches and stops the
// workers. Handles of cancelled work complete with ErrPoolClosed.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.feeders.Wait()
	p.wg.Wait()
	// A feeder may have won the race against cancellation after the workers
	// drained the queue.
	for {
		select {
		case b := <-p.queue:
			b.handle.fail(ErrPoolClosed)
			b.handle.finish(1)
		default:
			return
		}
	}
}

// QueueLength returns the number of batches waiting for a worker.
func (p *Pool) QueueLength() int {
	return len(p.queue)
}
