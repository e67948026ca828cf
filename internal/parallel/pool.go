// Package parallel provides a bounded worker pool for read-only
// e-graph workloads, primarily batch term extraction over many root
// classes. The pool gives controlled concurrency with backpressure so
// a large batch cannot exhaust memory by spawning a goroutine per
// root.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when submitting to a pool that has been
// shut down.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed set of goroutines executing submitted
// tasks. Submission blocks when all workers are busy and the buffer is
// full, which is the backpressure mechanism.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a pool with the given number of workers.
// Zero or negative selects the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker processes tasks until shutdown.
func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues a task for execution, blocking while the pool is
// saturated. Returns the context error on cancellation and
// ErrPoolShutdown after Shutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the pool, waiting for in-flight tasks to finish.
// Tasks still buffered but not yet started are dropped.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}
