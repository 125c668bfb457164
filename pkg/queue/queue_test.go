package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueueCompaction(t *testing.T) {
	q := New[int]()
	for i := 0; i < 1000; i++ {
		q.Push(i)
	}
	for i := 0; i < 600; i++ {
		v, _ := q.TryPop()
		require.Equal(t, i, v)
	}
	q.Push(1000)

	assert.Equal(t, 401, q.Len())
	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 600, v)

	rest := q.Drain()
	require.Len(t, rest, 400)
	assert.Equal(t, 601, rest[0])
	assert.Equal(t, 1000, rest[len(rest)-1])
}

func TestQueuePopTimeout(t *testing.T) {
	q := New[string]()

	start := time.Now()
	_, ok := q.Pop(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := New[string]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("reading")
	}()

	start := time.Now()
	v, ok := q.Pop(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "reading", v)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueuePopContextDone(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx, time.Second)
	assert.False(t, ok)

	// an available item wins over a done context
	q.Push(1)
	v, ok := q.Pop(ctx, time.Second)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestQueueDrainEmpty(t *testing.T) {
	q := New[int]()
	assert.Nil(t, q.Drain())
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for len(seen) < producers*perProducer {
			if v, ok := q.Pop(context.Background(), 50*time.Millisecond); ok {
				seen[v] = true
			}
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not receive every item")
	}
	assert.Len(t, seen, producers*perProducer)
}

func TestQueuePerProducerOrder(t *testing.T) {
	q := New[int]()
	go func() {
		for i := 0; i < 200; i++ {
			q.Push(i)
		}
	}()

	last := -1
	for n := 0; n < 200; n++ {
		v, ok := q.Pop(context.Background(), time.Second)
		require.True(t, ok)
		require.Greater(t, v, last)
		last = v
	}
}
