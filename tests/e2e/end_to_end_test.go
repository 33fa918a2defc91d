package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-maxit/judge-engine/internal/evaluator"
	"github.com/mini-maxit/judge-engine/internal/pipeline"
	"github.com/mini-maxit/judge-engine/internal/queue"
	"github.com/mini-maxit/judge-engine/internal/sandbox"
	"github.com/mini-maxit/judge-engine/internal/scheduler"
	"github.com/mini-maxit/judge-engine/internal/store"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/messages"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

// scriptedExecutor reads the prepared source file and interprets it as a
// behaviour keyword instead of running a container.
type scriptedExecutor struct {
	mu    sync.Mutex
	calls map[string]int
}

func (s *scriptedExecutor) Available(context.Context) error { return nil }

func (s *scriptedExecutor) Execute(_ context.Context, spec sandbox.Spec) (*sandbox.Result, error) {
	s.mu.Lock()
	s.calls[spec.SubmissionID]++
	s.mu.Unlock()

	entries, err := os.ReadDir(spec.WorkDir)
	if err != nil || len(entries) != 1 {
		return nil, fmt.Errorf("unexpected workspace %s: %v", spec.WorkDir, err)
	}
	source, err := os.ReadFile(filepath.Join(spec.WorkDir, entries[0].Name()))
	if err != nil {
		return nil, err
	}

	res := &sandbox.Result{Duration: 10 * time.Millisecond}
	switch strings.TrimSpace(string(source)) {
	case "sum":
		res.Stdout = strconv.Itoa(sum(spec.Stdin)) + "\n"
	case "sum-small-only":
		total := sum(spec.Stdin)
		if total > 10 {
			total = -1
		}
		res.Stdout = strconv.Itoa(total) + "\n"
	case "broken":
		res.ExitCode = 1
		res.Stderr = constants.CompilationFailedMarker + "\n"
	case "slow":
		res.ExitCode = constants.ExitCodeTimeLimitExceeded
		res.TimedOut = true
	default:
		res.ExitCode = 2
		res.Stderr = "NameError: name 'x' is not defined"
	}
	return res, nil
}

func sum(input string) int {
	total := 0
	for _, field := range strings.Fields(input) {
		n, _ := strconv.Atoi(field)
		total += n
	}
	return total
}

type recordingResponder struct {
	mu     sync.Mutex
	events []messages.ResultEvent
}

func (r *recordingResponder) Publish(string, amqp.Publishing) error { return nil }
func (r *recordingResponder) PublishErrorToResponseQueue(string, string, string, error) {}
func (r *recordingResponder) PublishSuccessHandshakeRespond(string, string, string, []languages.LanguageSpec) error {
	return nil
}
func (r *recordingResponder) PublishSuccessStatusRespond(string, string, string, messages.ResponseWorkerStatusPayload) error {
	return nil
}
func (r *recordingResponder) Close() error { return nil }

func (r *recordingResponder) PublishResult(event messages.ResultEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingResponder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type engine struct {
	store     *store.MemoryStore
	queue     queue.Queue
	scheduler scheduler.Scheduler
	executor  *scriptedExecutor
	responder *recordingResponder
}

func newEngine(t *testing.T, workers int) *engine {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.PutProblem(submission.Problem{
		ID:     "two-sum",
		Points: 100,
		TestCases: []submission.TestCase{
			{ID: "h1", Input: "20 22", ExpectedOutput: "42", IsHidden: true},
			{ID: "s1", Input: "1 2", ExpectedOutput: "3"},
			{ID: "h2", Input: "3 4", ExpectedOutput: "7", IsHidden: true},
		},
	})

	exec := &scriptedExecutor{calls: map[string]int{}}
	eval := evaluator.NewEvaluator(sandbox.NewRunner(exec, t.TempDir()))
	resp := &recordingResponder{}

	pool := make([]pipeline.Worker, workers)
	for i := range pool {
		pool[i] = pipeline.NewWorker(i, mem, eval, resp)
	}
	q := queue.NewQueue()
	sched := scheduler.NewScheduler(pool, q, time.Millisecond)
	require.NoError(t, sched.Start(context.Background()))
	t.Cleanup(func() { _ = sched.Stop(5 * time.Second) })

	return &engine{store: mem, queue: q, scheduler: sched, executor: exec, responder: resp}
}

func (e *engine) submit(t *testing.T, id, source string, isTestRun bool) {
	t.Helper()
	e.store.PutSubmission(submission.Submission{
		ID:        id,
		ProblemID: "two-sum",
		UserID:    "user-" + id,
		Code:      source,
		Language:  "PYTHON3",
		Status:    submission.Pending,
		IsTestRun: isTestRun,
	})
	require.NoError(t, e.queue.Enqueue(id))
}

func (e *engine) await(t *testing.T, id string) *submission.Submission {
	t.Helper()
	var sub *submission.Submission
	require.Eventually(t, func() bool {
		loaded, err := e.store.LoadSubmission(context.Background(), id)
		if err != nil || !loaded.Status.IsTerminal() {
			return false
		}
		sub = loaded
		return true
	}, 5*time.Second, 5*time.Millisecond)
	return sub
}

func TestEndToEnd_Verdicts(t *testing.T) {
	e := newEngine(t, 3)

	e.submit(t, "accepted", "sum", false)
	e.submit(t, "partial", "sum-small-only", false)
	e.submit(t, "compile", "broken", false)
	e.submit(t, "tle", "slow", false)
	e.submit(t, "crash", "raise", false)
	e.submit(t, "sample-run", "sum-small-only", true)

	accepted := e.await(t, "accepted")
	assert.Equal(t, submission.Accepted, accepted.Status)
	assert.Equal(t, 100, accepted.Score)
	assert.Equal(t, 3, accepted.TestCasesPassed)
	assert.Equal(t, "All test cases passed!\nScore: 100", accepted.Output)

	partial := e.await(t, "partial")
	assert.Equal(t, submission.PartiallyAccepted, partial.Status)
	assert.Equal(t, 66, partial.Score)
	assert.Equal(t,
		"Sample test case 1: PASSED\n"+
			"Hidden test case 2: FAILED\n"+
			"Hidden test case 3: PASSED\n"+
			"\nTest cases passed: 2/3\nScore: 66/100",
		partial.Output)

	compile := e.await(t, "compile")
	assert.Equal(t, submission.CompilationError, compile.Status)
	assert.Zero(t, compile.Score)
	assert.Contains(t, compile.ErrorMessage, constants.CompilationFailedMarker)

	tle := e.await(t, "tle")
	assert.Equal(t, submission.WrongAnswer, tle.Status)
	assert.Contains(t, tle.Output, "Hidden test case 3: TIME LIMIT EXCEEDED")

	crash := e.await(t, "crash")
	assert.Equal(t, submission.WrongAnswer, crash.Status)
	assert.Contains(t, crash.Output, "  Error: NameError")

	sample := e.await(t, "sample-run")
	assert.Equal(t, submission.Accepted, sample.Status)
	assert.Zero(t, sample.Score)
	assert.Equal(t, "All sample test cases passed!", sample.Output)

	require.Eventually(t, func() bool { return e.responder.count() == 6 }, 2*time.Second, 5*time.Millisecond)

	e.executor.mu.Lock()
	defer e.executor.mu.Unlock()
	assert.Equal(t, 1, e.executor.calls["compile"])
	assert.Equal(t, 1, e.executor.calls["sample-run"])
	assert.Equal(t, 3, e.executor.calls["accepted"])
}

func TestEndToEnd_EachSubmissionJudgedOnce(t *testing.T) {
	e := newEngine(t, 4)

	const total = 40
	for i := range total {
		e.submit(t, fmt.Sprintf("sub-%d", i), "sum", false)
	}
	// Duplicate enqueues of an already judged id are skipped as not pending.
	for i := range total {
		e.await(t, fmt.Sprintf("sub-%d", i))
	}
	require.NoError(t, e.queue.Enqueue("sub-0"))
	require.Eventually(t, func() bool { return e.queue.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	for i := range total {
		id := fmt.Sprintf("sub-%d", i)
		assert.Equal(t, 2, e.store.Saves(id), id)
	}
	status := e.scheduler.GetWorkersStatus()
	assert.Equal(t, 4, status.TotalWorkers)
}
