package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/evaluator"
	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/metrics"
	"github.com/mini-maxit/judge-engine/internal/rabbitmq/responder"
	"github.com/mini-maxit/judge-engine/internal/store"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	customErr "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/messages"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

type Worker interface {
	ProcessSubmission(ctx context.Context, submissionID string) error
	GetState() WorkerState
	GetId() int
}

type WorkerState struct {
	Status       constants.WorkerStatus `json:"status"`
	SubmissionID string                 `json:"submission_id"`
}

type worker struct {
	id        int
	mu        sync.RWMutex
	state     WorkerState
	store     store.Store
	evaluator evaluator.Evaluator
	responder responder.Responder
	logger    *zap.SugaredLogger
}

// NewWorker builds a worker. responder may be nil when result events are not published.
func NewWorker(
	id int,
	store store.Store,
	evaluator evaluator.Evaluator,
	responder responder.Responder,
) Worker {
	logger := logger.NewNamedLogger(fmt.Sprintf("worker-%d", id))

	return &worker{
		id:        id,
		state:     WorkerState{Status: constants.WorkerStatusIdle},
		store:     store,
		evaluator: evaluator,
		responder: responder,
		logger:    logger,
	}
}

func (ws *worker) GetId() int {
	return ws.id
}

func (ws *worker) GetState() WorkerState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *worker) setState(status constants.WorkerStatus, submissionID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.state = WorkerState{Status: status, SubmissionID: submissionID}
}

// ProcessSubmission drives one submission through PENDING -> RUNNING -> terminal.
// The submission is saved after each transition. A panic during evaluation is
// recovered and turned into a RUNTIME_ERROR verdict.
func (ws *worker) ProcessSubmission(ctx context.Context, submissionID string) (err error) {
	ws.setState(constants.WorkerStatusBusy, submissionID)
	defer ws.setState(constants.WorkerStatusIdle, "")

	var sub *submission.Submission
	defer func() {
		if r := recover(); r != nil {
			ws.logger.Errorf("Recovered from panic: %v [SubmissionID: %s]", r, submissionID)
			err = fmt.Errorf("worker %d panicked: %v", ws.id, r)
			if sub != nil && sub.Status == submission.Running {
				ws.finish(ctx, sub, submission.Verdict{
					Status:       submission.RuntimeError,
					ErrorMessage: fmt.Sprintf("%s%v", constants.SubmissionMessageExecutionFailed, r),
				})
			}
		}
	}()

	ws.logger.Infof("Processing submission [SubmissionID: %s]", submissionID)

	sub, err = ws.store.LoadSubmission(ctx, submissionID)
	if err != nil {
		ws.logger.Errorf("Failed to load submission: %s [SubmissionID: %s]", err, submissionID)
		return err
	}
	if sub.Status != submission.Pending {
		ws.logger.Warnf("Skipping submission in status %s [SubmissionID: %s]", sub.Status, submissionID)
		return fmt.Errorf("%w: %s is %s", customErr.ErrNotPending, submissionID, sub.Status)
	}

	if err = sub.Transition(submission.Running); err != nil {
		return err
	}
	if err = ws.store.SaveSubmission(ctx, sub); err != nil {
		ws.logger.Errorf("Failed to mark submission running: %s [SubmissionID: %s]", err, submissionID)
		return err
	}

	verdict := ws.evaluate(ctx, sub)

	if ctx.Err() != nil {
		ws.logger.Warnf("Evaluation interrupted, leaving submission RUNNING [SubmissionID: %s]", submissionID)
		return ctx.Err()
	}

	if err = ws.finish(ctx, sub, verdict); err != nil {
		return err
	}
	ws.logger.Infof("Finished with status %s, score %d [SubmissionID: %s]", sub.Status, sub.Score, submissionID)
	return nil
}

func (ws *worker) evaluate(ctx context.Context, sub *submission.Submission) submission.Verdict {
	problem, err := ws.store.LoadProblem(ctx, sub.ProblemID)
	if err != nil {
		ws.logger.Errorf("Failed to load problem %s: %s [SubmissionID: %s]", sub.ProblemID, err, sub.ID)
		return submission.Verdict{Status: submission.RuntimeError, ErrorMessage: err.Error()}
	}

	testCases, err := ws.store.LoadTestCases(ctx, sub.ProblemID)
	if err != nil {
		ws.logger.Errorf("Failed to load test cases of %s: %s [SubmissionID: %s]", sub.ProblemID, err, sub.ID)
		return submission.Verdict{Status: submission.RuntimeError, ErrorMessage: err.Error()}
	}

	snapshot := *problem
	snapshot.TestCases = testCases
	return ws.evaluator.Evaluate(ctx, sub, &snapshot)
}

func (ws *worker) finish(ctx context.Context, sub *submission.Submission, verdict submission.Verdict) error {
	if err := sub.Finish(verdict); err != nil {
		ws.logger.Errorf("Cannot apply verdict: %s [SubmissionID: %s]", err, sub.ID)
		return err
	}
	if err := ws.store.SaveSubmission(ctx, sub); err != nil {
		ws.logger.Errorf("Failed to save verdict: %s [SubmissionID: %s]", err, sub.ID)
		return err
	}
	metrics.SubmissionsTotal.WithLabelValues(sub.Language, string(sub.Status)).Inc()

	if ws.responder == nil {
		return nil
	}
	if err := ws.responder.PublishResult(messages.NewResultEvent(sub, time.Now())); err != nil {
		metrics.ResultPublishFailures.Inc()
		ws.logger.Errorf("Failed to publish result event: %s [SubmissionID: %s]", err, sub.ID)
	}
	return nil
}
