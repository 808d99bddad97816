package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nback/internal/engine"
)

func TestInputQueue_FIFO(t *testing.T) {
	q := newInputQueue()

	require.True(t, q.Enqueue(input{channel: engine.Sound}))
	require.True(t, q.Enqueue(input{channel: engine.Position}))
	assert.Equal(t, 2, q.Len())

	in, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, engine.Sound, in.channel)

	in, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, engine.Position, in.channel)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestInputQueue_SignalCoalesces(t *testing.T) {
	q := newInputQueue()
	q.Enqueue(input{})
	q.Enqueue(input{})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestInputQueue_CloseRejectsButKeepsQueued(t *testing.T) {
	q := newInputQueue()
	q.Enqueue(input{channel: engine.Position})
	q.Close()

	assert.False(t, q.Enqueue(input{}))
	in, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, engine.Position, in.channel)
}

func TestInputQueue_ThreadSafe(t *testing.T) {
	q := newInputQueue()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(input{channel: engine.Sound})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}
