package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countJob struct {
	counter *atomic.Int64
	fail    bool
}

type countResult struct {
	err error
}

func (r *countResult) GetError() error { return r.err }

func (j *countJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	if j.fail {
		return &countResult{err: errors.New("job failed")}
	}
	return &countResult{}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(4)
	pool.Start()

	for i := 0; i < 20; i++ {
		pool.Submit(&countJob{counter: &counter})
	}
	results := pool.Wait()

	if counter.Load() != 20 {
		t.Errorf("executed %d jobs, want 20", counter.Load())
	}
	if len(results) != 20 {
		t.Errorf("got %d results, want 20", len(results))
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(2)
	pool.Start()

	pool.Submit(&countJob{counter: &counter})
	pool.Submit(&countJob{counter: &counter, fail: true})
	results := pool.Wait()

	failures := 0
	for _, r := range results {
		if r.GetError() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("got %d failures, want 1", failures)
	}
}

func TestPool_ZeroWorkersClampedToOne(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(0)
	pool.Start()
	pool.Submit(&countJob{counter: &counter})
	pool.Wait()

	if counter.Load() != 1 {
		t.Error("pool with clamped worker count should still run jobs")
	}
}
