package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to a Pool.
type Job func() error

// Pool runs submitted jobs on a fixed number of worker goroutines. A Pool may
// be reused for several batches of jobs; Wait blocks until all jobs submitted
// so far have finished and reports the first error encountered.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan Job

	pending sync.WaitGroup
	feeders sync.WaitGroup

	m   sync.Mutex
	err error

	stop sync.Once
}

// New returns a Pool with numWorkers workers.
func New(numWorkers int) *Pool {
	return NewWithCtx(context.Background(), numWorkers)
}

// NewWithCtx returns a Pool whose jobs are skipped once ctx is canceled.
func NewWithCtx(ctx context.Context, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan Job, numWorkers),
	}
	for i := 0; i < numWorkers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	for job := range p.jobs {
		if p.ctx.Err() == nil {
			if err := job(); err != nil {
				p.setErr(err)
				p.cancel()
			}
		}
		p.pending.Done()
	}
}

func (p *Pool) setErr(err error) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// feed hands jobs to the workers; jobs that cannot be handed off before the
// pool is canceled are accounted as done without running.
func (p *Pool) feed(jobs []Job) {
	defer p.feeders.Done()
	for _, job := range jobs {
		select {
		case p.jobs <- job:
		case <-p.ctx.Done():
			p.pending.Done()
		}
	}
}

// Add submits jobs without blocking the caller.
func (p *Pool) Add(jobs []Job) {
	p.pending.Add(len(jobs))
	p.feeders.Add(1)
	go p.feed(jobs)
}

// AddBlocking submits jobs, blocking until all of them have been handed to a
// worker (or skipped because the pool was stopped).
func (p *Pool) AddBlocking(jobs []Job) {
	p.pending.Add(len(jobs))
	p.feeders.Add(1)
	p.feed(jobs)
}

// Wait blocks until all submitted jobs have finished and returns the first
// job error, if any. The pool remains usable afterwards.
func (p *Pool) Wait() error {
	p.pending.Wait()
	p.m.Lock()
	defer p.m.Unlock()
	return p.err
}

// Stop cancels the pool and releases its workers: queued jobs that have not
// started are skipped, in-flight jobs run to completion. The pool must not be
// used after Stop.
func (p *Pool) Stop() {
	p.cancel()
	p.stop.Do(func() {
		p.feeders.Wait()
		close(p.jobs)
	})
}
