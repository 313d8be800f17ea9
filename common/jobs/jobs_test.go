package jobs

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := NewPool(3, nil)
	defer p.Close()

	var count atomic.Int32
	var list []*Job
	for i := 0; i < 50; i++ {
		list = append(list, p.Submit(func() { count.Add(1) }))
	}
	WaitForCompletion(list...)
	assert.Equal(t, int32(50), count.Load())
	for _, j := range list {
		assert.True(t, j.Done())
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Close()

	var running, peak atomic.Int32
	var mu sync.Mutex
	var list []*Job
	for i := 0; i < 10; i++ {
		list = append(list, p.Submit(func() {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	WaitForCompletion(list...)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 2, p.WorkerCount())
}

func TestPoolRecoversPanic(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()
	j := p.Submit(func() { panic("boom") })
	j.Wait()
	assert.True(t, j.Done())
}

func TestInline(t *testing.T) {
	ran := false
	j := Inline{}.Submit(func() { ran = true })
	assert.True(t, ran)
	assert.True(t, j.Done())
	var nilJob *Job
	nilJob.Wait()
	assert.True(t, nilJob.Done())
}
