package job

import (
	"time"
)

type Job interface {
	Execute()
}

type Queue chan Job

// Pool runs queued jobs on a fixed set of workers. The queue is owned by the
// pool rather than shared as a package-level variable, so each binary wires
// its own.
type Pool struct {
	queue   Queue
	workers []worker
}

func NewPool(size int, queueSize int) *Pool {
	queue := make(Queue, queueSize)

	workers := make([]worker, size)
	for i := 0; i < size; i++ {
		workers[i] = worker{queue: queue}
	}

	return &Pool{
		queue:   queue,
		workers: workers,
	}
}

func (p *Pool) Start() {
	for _, w := range p.workers {
		w.start()
	}
}

// Dispatch enqueues a job after an optional delay. It never blocks the
// caller.
func (p *Pool) Dispatch(j Job, delay time.Duration) {
	go func() {
		if delay > 0 {
			<-time.After(delay)
		}
		p.queue <- j
	}()
}

type worker struct {
	queue Queue
}

func (w worker) start() {
	go func() {
		for j := range w.queue {
			j.Execute()
		}
	}()
}
