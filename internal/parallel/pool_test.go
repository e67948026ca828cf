package parallel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolExecutesTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := pool.Submit(context.Background(), func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, int64(100), atomic.LoadInt64(&counter))
}

func TestWorkerPoolDefaultsToNumCPU(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()

	done := make(chan struct{})
	err := pool.Submit(context.Background(), func() { close(done) })
	require.NoError(t, err)
	<-done
}

func TestWorkerPoolSubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()

	err := pool.Submit(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestWorkerPoolSubmitCancelledContext(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	// Saturate the single worker and its buffer so Submit must block,
	// then cancel.
	block := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() { <-block }))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)
	close(block)
}

func TestWorkerPoolShutdownIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Shutdown()
	pool.Shutdown()
}
