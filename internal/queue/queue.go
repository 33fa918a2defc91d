package queue

import (
	"container/list"
	"sync"

	"github.com/mini-maxit/judge-engine/internal/metrics"
	"github.com/mini-maxit/judge-engine/pkg/errors"
)

// Queue is an unbounded FIFO of submission ids shared by all workers.
type Queue interface {
	Enqueue(submissionID string) error
	// Poll removes and returns the oldest id without blocking.
	Poll() (string, bool)
	Len() int
}

type submissionQueue struct {
	mu    sync.Mutex
	items *list.List
}

func NewQueue() Queue {
	return &submissionQueue{items: list.New()}
}

func (q *submissionQueue) Enqueue(submissionID string) error {
	if submissionID == "" {
		return errors.ErrEmptySubmissionID
	}

	q.mu.Lock()
	q.items.PushBack(submissionID)
	depth := q.items.Len()
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	return nil
}

func (q *submissionQueue) Poll() (string, bool) {
	q.mu.Lock()
	front := q.items.Front()
	if front == nil {
		q.mu.Unlock()
		return "", false
	}
	q.items.Remove(front)
	depth := q.items.Len()
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	return front.Value.(string), true
}

func (q *submissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
