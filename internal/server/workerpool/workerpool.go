// Package workerpool implements the two bounded, fixed-size goroutine
// pools (C9) that execute framed read/decode and encode/write tasks off
// the connection manager's main loop. A saturated pool rejects rather than
// blocking, so a burst of slow clients cannot grow memory without bound.
package workerpool

import (
	"context"
	"sync"

	"github.com/serezk4/collectiond/internal/logging"
)

// Task is a unit of work submitted to a Pool.
type Task func()

// Pool is a fixed-size worker pool backed by a bounded task queue.
type Pool struct {
	name string
	log  logging.Logger

	tasks chan Task
	wg    sync.WaitGroup
}

// New starts a Pool with the given number of workers and queue capacity.
// Workers run until Close is called.
func New(name string, workers, queueCapacity int, log logging.Logger) *Pool {
	p := &Pool{
		name:  name,
		log:   log,
		tasks: make(chan Task, queueCapacity),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}

	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues task for execution. It reports false, logging at warning,
// if the queue is currently full — the caller is expected to shed load
// (e.g. close the connection that produced the task) rather than retry.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.log.Warn(context.Background(), "worker pool saturated, rejecting task", "pool", p.name)
		return false
	}
}

// Close stops accepting new tasks and waits for queued and in-flight tasks
// to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
