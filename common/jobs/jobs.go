// Package jobs provides the task executor used for tile generation and path
// searches. Submitted closures run on a bounded set of goroutines; callers
// keep the returned Job to wait for completion.
package jobs

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Executor interface {
	Submit(fn func()) *Job
	WorkerCount() int
}

type Job struct {
	done     chan struct{}
	finished atomic.Bool
}

func newJob() *Job {
	return &Job{done: make(chan struct{})}
}

func (j *Job) finish() {
	j.finished.Store(true)
	close(j.done)
}

// Wait blocks until the job has run. A nil job is considered complete.
func (j *Job) Wait() {
	if j == nil {
		return
	}
	<-j.done
}

func (j *Job) Done() bool {
	return j == nil || j.finished.Load()
}

// WaitForCompletion waits for every job in the list.
func WaitForCompletion(list ...*Job) {
	for _, j := range list {
		j.Wait()
	}
}

// Pool runs jobs on at most workers goroutines at once.
type Pool struct {
	sem     *semaphore.Weighted
	workers int
	wg      sync.WaitGroup
	closed  atomic.Bool
	logger  *zap.Logger
}

func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		logger:  logger,
	}
}

func (p *Pool) WorkerCount() int {
	return p.workers
}

// Submit schedules fn. After Close, fn runs inline on the caller.
func (p *Pool) Submit(fn func()) *Job {
	j := newJob()
	if p.closed.Load() {
		p.run(j, fn)
		return j
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			p.logger.Error("acquire worker failed", zap.Error(err))
			j.finish()
			return
		}
		defer p.sem.Release(1)
		p.run(j, fn)
	}()
	return j
}

func (p *Pool) run(j *Job, fn func()) {
	defer j.finish()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	fn()
}

// Close waits for every submitted job.
func (p *Pool) Close() {
	p.closed.Store(true)
	p.wg.Wait()
}

// Inline runs every job synchronously on the submitting goroutine.
type Inline struct{}

func (Inline) Submit(fn func()) *Job {
	j := newJob()
	defer j.finish()
	fn()
	return j
}

func (Inline) WorkerCount() int {
	return 1
}
