package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/metrics"
	"github.com/mini-maxit/judge-engine/internal/pipeline"
	"github.com/mini-maxit/judge-engine/internal/queue"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/messages"
)

type Scheduler interface {
	Start(ctx context.Context) error
	Stop(grace time.Duration) error
	GetWorkersStatus() messages.ResponseWorkerStatusPayload
}

type scheduler struct {
	mu           sync.Mutex
	workers      []pipeline.Worker
	queue        queue.Queue
	pollInterval time.Duration
	logger       *zap.SugaredLogger

	started  bool
	stopped  bool
	stopping chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScheduler runs one polling loop per worker over the shared queue.
func NewScheduler(workers []pipeline.Worker, q queue.Queue, pollInterval time.Duration) Scheduler {
	if pollInterval <= 0 {
		pollInterval = time.Duration(constants.DefaultQueuePollIntervalMs) * time.Millisecond
	}
	return &scheduler{
		workers:      workers,
		queue:        q,
		pollInterval: pollInterval,
		logger:       logger.NewNamedLogger("workerPool"),
		stopping:     make(chan struct{}),
	}
}

func (s *scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.ErrSchedulerStopped
	}
	if s.started {
		return errors.ErrSchedulerRunning
	}
	s.started = true

	processCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, w := range s.workers {
		s.wg.Add(1)
		go s.loop(processCtx, w)
	}
	s.logger.Infof("Started %d workers", len(s.workers))
	return nil
}

// Stop stops polling and waits up to grace for in-flight submissions. After
// the grace period their context is cancelled and ErrShutdownTimeout is returned.
func (s *scheduler) Stop(grace time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return errors.ErrSchedulerStopped
	}
	s.stopped = true
	close(s.stopping)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("All workers finished")
		return nil
	case <-time.After(grace):
	}

	s.logger.Warnf("Workers still busy after %s, cancelling in-flight submissions", grace)
	s.cancel()
	select {
	case <-done:
	case <-time.After(constants.ContainerCleanupTimeout):
		s.logger.Error("Workers did not exit after cancellation")
	}
	return errors.ErrShutdownTimeout
}

func (s *scheduler) loop(ctx context.Context, w pipeline.Worker) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopping:
			return
		case <-ctx.Done():
			return
		default:
		}

		submissionID, ok := s.queue.Poll()
		if !ok {
			select {
			case <-s.stopping:
				return
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
			continue
		}

		s.process(ctx, w, submissionID)
	}
}

func (s *scheduler) process(ctx context.Context, w pipeline.Worker, submissionID string) {
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Worker panicked: %v [WorkerID: %d] [SubmissionID: %s]", r, w.GetId(), submissionID)
		}
	}()

	if err := w.ProcessSubmission(ctx, submissionID); err != nil {
		s.logger.Warnf("Submission not completed: %s [WorkerID: %d] [SubmissionID: %s]", err, w.GetId(), submissionID)
	}
}

func (s *scheduler) GetWorkersStatus() messages.ResponseWorkerStatusPayload {
	statuses := make([]messages.WorkerStatus, 0, len(s.workers))
	busy := 0
	for _, w := range s.workers {
		state := w.GetState()
		if state.Status == constants.WorkerStatusBusy {
			busy++
		}
		statuses = append(statuses, messages.WorkerStatus{
			WorkerID:     w.GetId(),
			Status:       state.Status,
			SubmissionID: state.SubmissionID,
		})
	}

	return messages.ResponseWorkerStatusPayload{
		BusyWorkers:  busy,
		TotalWorkers: len(s.workers),
		QueueLength:  s.queue.Len(),
		WorkerStatus: statuses,
	}
}
