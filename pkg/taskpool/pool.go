package taskpool

import (
	"fmt"

	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
)

// Pool runs blocking functions on a bounded set of worker slots so that the
// gateway dispatch path never executes them directly. There is no queueing
// beyond the bound and no cancellation: once a task starts it runs to
// completion or failure.
type Pool struct {
	slots chan struct{}
	log   *logger.Logger
}

// result carries a finished task back to the awaiting caller
type result struct {
	value interface{}
	err   error
}

// New creates a pool with the given number of worker slots
func New(size int, log *logger.Logger) *Pool {
	if size <= 0 {
		size = 4
	}

	return &Pool{
		slots: make(chan struct{}, size),
		log:   log.With("component", "taskpool"),
	}
}

// Run executes fn on a worker goroutine and blocks the calling goroutine
// until it finishes. Panics inside fn are recovered and returned as errors;
// they must never take down the dispatch loop.
func (p *Pool) Run(label string, fn func() (interface{}, error)) (interface{}, error) {
	p.slots <- struct{}{}

	done := make(chan result, 1)

	go func() {
		defer func() { <-p.slots }()
		defer func() {
			if r := recover(); r != nil {
				p.log.Errorw("Task panicked", "task", label, "panic", r)
				done <- result{err: fmt.Errorf("task %s panicked: %v", label, r)}
			}
		}()

		value, err := fn()
		done <- result{value: value, err: err}
	}()

	res := <-done
	if res.err != nil {
		p.log.Warnw("Task failed", "task", label, "error", res.err)
	}

	return res.value, res.err
}

// InFlight returns how many tasks are currently running
func (p *Pool) InFlight() int {
	return len(p.slots)
}

// Size returns the pool's concurrency bound
func (p *Pool) Size() int {
	return cap(p.slots)
}
