// Package workerpool generalizes the teacher's internal/worker.go
// WorkerPool — a tomb-supervised pool of goroutines draining a shared task
// channel — into a pool with one supervised goroutine and one task queue
// per key. Here the key is an instrument ID: spec.md §5 permits
// parallelizing across independent instruments as long as one instrument's
// matching loop stays strictly serial, so each key gets its own queue
// instead of every worker racing a shared one.
package workerpool

import (
	"sync"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"
)

const queueSize = 256

// Task is one unit of work submitted to a key's queue. It runs on that
// key's single goroutine, so two tasks for the same key never overlap.
type Task func()

// Pool runs one goroutine per key, each draining its own FIFO queue in
// submission order. Keys are created lazily on first Submit and live until
// Stop.
type Pool struct {
	mu     sync.Mutex
	t      *tomb.Tomb
	log    zerolog.Logger
	queues map[string]chan Task
}

func New(t *tomb.Tomb, log zerolog.Logger) *Pool {
	return &Pool{
		t:      t,
		log:    log,
		queues: make(map[string]chan Task),
	}
}

// Submit enqueues task onto key's queue, starting that key's worker
// goroutine the first time key is seen.
func (p *Pool) Submit(key string, task Task) {
	p.queueFor(key) <- task
}

func (p *Pool) queueFor(key string) chan Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, ok := p.queues[key]
	if ok {
		return queue
	}

	queue = make(chan Task, queueSize)
	p.queues[key] = queue
	p.t.Go(func() error {
		return p.worker(key, queue)
	})
	return queue
}

// worker drains queue in order until the pool is told to die and the queue
// has been emptied, matching the teacher's drain-then-exit shutdown shape
// in internal/worker.go's Setup loop.
func (p *Pool) worker(key string, queue chan Task) error {
	p.log.Debug().Str("key", key).Msg("worker starting")
	for {
		select {
		case <-p.t.Dying():
			return p.drain(queue)
		case task := <-queue:
			task()
		}
	}
}

func (p *Pool) drain(queue chan Task) error {
	for {
		select {
		case task := <-queue:
			task()
		default:
			return nil
		}
	}
}

// Wait blocks until every worker goroutine has exited.
func (p *Pool) Wait() error {
	p.mu.Lock()
	started := len(p.queues) > 0
	p.mu.Unlock()
	if !started {
		// The tomb tracks no goroutine, so its Wait would never return.
		return nil
	}
	return p.t.Wait()
}

// Stop signals every worker to finish its queue and exit.
func (p *Pool) Stop() {
	p.t.Kill(nil)
}
