package exec

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/slimlog"
	"github.com/slimchain/slimchain/internal/types"
)

// Dispatcher bounds a storage node's in-flight executions to a fixed
// capacity (spec §5's backpressure model): once the
// semaphore is saturated, new requests are rejected with ErrBusy rather
// than queued unboundedly.
type Dispatcher struct {
	backend Backend
	sem     *semaphore.Weighted
	log     slimlog.Logger
}

// NewDispatcher builds a Dispatcher admitting at most capacity concurrent
// executions. NewPool passes its worker count as capacity.
func NewDispatcher(backend Backend, capacity int64) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		sem:     semaphore.NewWeighted(capacity),
		log:     slimlog.New("exec.dispatch"),
	}
}

// Dispatch runs req against reader under ctx, honoring ctx's deadline
// (derived from miner.max_block_interval_ms by the caller) and the
// dispatcher's admission cap.
func (d *Dispatcher) Dispatch(ctx context.Context, reader StateReader, req *types.TxReq) (Result, error) {
	if !d.sem.TryAcquire(1) {
		return Result{}, errs.ErrBusy
	}
	defer d.sem.Release(1)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := d.backend.Execute(ctx, reader, req)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("exec: %w", ctx.Err())
	case o := <-done:
		return o.res, o.err
	}
}

// Pool runs n goroutines pulling TxReqs off jobs and reporting results on
// results, the concrete "chain.n_executors goroutines pulling from a bounded
// job channel" shape spec §5 describes. Each worker runs its jobs through
// Dispatch above; Pool is what a running storage node wires into its
// request-handling loop.
type Pool struct {
	dispatcher *Dispatcher
	jobs       chan job
	log        slimlog.Logger
}

type job struct {
	ctx    context.Context
	reader StateReader
	req    *types.TxReq
	result chan<- outcomeMsg
}

type outcomeMsg struct {
	res Result
	err error
}

// NewPool starts n worker goroutines; queueDepth bounds how many jobs may
// be buffered awaiting a free worker before Submit returns ErrBusy.
func NewPool(backend Backend, n int, queueDepth int) *Pool {
	p := &Pool{
		dispatcher: NewDispatcher(backend, int64(n)),
		jobs:       make(chan job, queueDepth),
		log:        slimlog.New("exec.pool"),
	}
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for j := range p.jobs {
		res, err := p.dispatcher.Dispatch(j.ctx, j.reader, j.req)
		j.result <- outcomeMsg{res, err}
	}
}

// Submit enqueues req for execution, returning ErrBusy immediately if the
// job queue is already full rather than blocking the caller.
func (p *Pool) Submit(ctx context.Context, reader StateReader, req *types.TxReq) (Result, error) {
	result := make(chan outcomeMsg, 1)
	select {
	case p.jobs <- job{ctx: ctx, reader: reader, req: req, result: result}:
	default:
		return Result{}, errs.ErrBusy
	}
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("exec: %w", ctx.Err())
	case o := <-result:
		return o.res, o.err
	}
}

// Close stops accepting new jobs. In-flight jobs already queued still run.
func (p *Pool) Close() { close(p.jobs) }
