package queue_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-maxit/judge-engine/internal/queue"
	"github.com/mini-maxit/judge-engine/pkg/errors"
)

func TestQueue_FIFO(t *testing.T) {
	q := queue.NewQueue()
	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	require.NoError(t, q.Enqueue("c"))
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Poll()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Poll()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_RejectsEmptyID(t *testing.T) {
	q := queue.NewQueue()
	assert.ErrorIs(t, q.Enqueue(""), errors.ErrEmptySubmissionID)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentProducersAndConsumers(t *testing.T) {
	const (
		producers   = 8
		perProducer = 250
		consumers   = 6
	)
	q := queue.NewQueue()

	var produced sync.WaitGroup
	produced.Add(producers)
	for p := range producers {
		go func(p int) {
			defer produced.Done()
			for i := range perProducer {
				_ = q.Enqueue(fmt.Sprintf("sub-%d-%d", p, i))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := make(map[string]int, producers*perProducer)
	done := make(chan struct{})
	var consumed sync.WaitGroup
	consumed.Add(consumers)
	for range consumers {
		go func() {
			defer consumed.Done()
			for {
				id, ok := q.Poll()
				if !ok {
					select {
					case <-done:
						// Drain anything enqueued after the last empty poll.
						if id, ok = q.Poll(); !ok {
							return
						}
					default:
						continue
					}
				}
				mu.Lock()
				seen[id]++
				mu.Unlock()
			}
		}()
	}

	produced.Wait()
	close(done)
	consumed.Wait()

	assert.Len(t, seen, producers*perProducer)
	for id, n := range seen {
		assert.Equal(t, 1, n, "submission %s dequeued %d times", id, n)
	}
	assert.Equal(t, 0, q.Len())
}
