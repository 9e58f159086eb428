package conc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/pairchat-go/pkg/util/merr"
)

func TestPool_Submit(t *testing.T) {
	var pre int
	var mu sync.Mutex
	pool, err := NewPool(4, WithPreHandler(func() {
		mu.Lock()
		pre++
		mu.Unlock()
	}))
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(wg.Done))
	}
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 8, pre)
	mu.Unlock()
	assert.Equal(t, 4, pool.Cap())
}

func TestPool_NonBlockingExhausted(t *testing.T) {
	pool, err := NewPool(1, WithNonBlocking(true))
	require.NoError(t, err)
	defer pool.Release()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-block
	}))
	<-started
	assert.Equal(t, 1, pool.Running())

	err = pool.Submit(func() {})
	assert.ErrorIs(t, err, merr.ErrPoolExhausted)

	close(block)
	// 任务结束后空闲 worker 会被复用，名额立即可用。
	assert.Eventually(t, func() bool {
		done := make(chan struct{})
		if pool.Submit(func() { close(done) }) != nil {
			return false
		}
		<-done
		return true
	}, time.Second, 10*time.Millisecond)
}

func TestPool_PanicHandler(t *testing.T) {
	got := make(chan any, 1)
	pool, err := NewPool(1, WithPanicHandler(func(v any) { got <- v }))
	require.NoError(t, err)
	defer pool.Release()

	require.NoError(t, pool.Submit(func() { panic("boom") }))
	select {
	case v := <-got:
		assert.Equal(t, "boom", v)
	case <-time.After(time.Second):
		t.Fatal("panic handler not called")
	}
}
