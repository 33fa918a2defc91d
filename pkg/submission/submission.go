package submission

import (
	"fmt"
	"time"

	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
)

type Status string

const (
	// Submission stored and waiting in the queue.
	Pending Status = "PENDING"
	// Submission picked up by a worker.
	Running Status = "RUNNING"
	// Every planned test case passed.
	Accepted Status = "ACCEPTED"
	// Some, but not all, test cases passed.
	PartiallyAccepted Status = "PARTIALLY_ACCEPTED"
	// No test case passed.
	WrongAnswer Status = "WRONG_ANSWER"
	// The build step failed, remaining test cases were skipped.
	CompilationError Status = "COMPILATION_ERROR"
	// Evaluation could not complete (runtime unavailable, no test cases, crash).
	RuntimeError Status = "RUNTIME_ERROR"
	// Reserved for a whole-submission time limit verdict.
	TimeLimitExceeded Status = "TIME_LIMIT_EXCEEDED"
)

// IsTerminal reports whether the status ends the state machine.
func (s Status) IsTerminal() bool {
	switch s {
	case Accepted, PartiallyAccepted, WrongAnswer, CompilationError, RuntimeError, TimeLimitExceeded:
		return true
	default:
		return false
	}
}

// CanTransition allows PENDING -> RUNNING and RUNNING -> terminal only.
func CanTransition(from, to Status) bool {
	switch from {
	case Pending:
		return to == Running
	case Running:
		return to.IsTerminal()
	default:
		return false
	}
}

type Submission struct {
	ID              string    `json:"id"`
	ProblemID       string    `json:"problem_id"`
	UserID          string    `json:"user_id"`
	Code            string    `json:"code"`
	Language        string    `json:"language"`
	Status          Status    `json:"status"`
	Score           int       `json:"score"`
	TestCasesPassed int       `json:"test_cases_passed"`
	TotalTestCases  int       `json:"total_test_cases"`
	ExecutionTime   int64     `json:"execution_time"` // milliseconds
	Output          string    `json:"output"`
	ErrorMessage    string    `json:"error_message"`
	IsTestRun       bool      `json:"is_test_run"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Transition moves the submission to a non-terminal-producing state.
// Use Finish for terminal states so the result fields are set together.
func (s *Submission) Transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// Finish applies a terminal verdict, setting status, score and diagnostics at once.
func (s *Submission) Finish(v Verdict) error {
	if !v.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", errors.ErrInvalidTransition, v.Status)
	}
	if !CanTransition(s.Status, v.Status) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.Status, v.Status)
	}
	s.Status = v.Status
	s.Score = v.Score
	s.TestCasesPassed = v.TestCasesPassed
	s.TotalTestCases = v.TotalTestCases
	s.ExecutionTime = v.ExecutionTime
	s.Output = v.Output
	s.ErrorMessage = v.ErrorMessage
	return nil
}

// Verdict is the outcome of evaluating a submission.
type Verdict struct {
	Status          Status `json:"status"`
	Score           int    `json:"score"`
	TestCasesPassed int    `json:"test_cases_passed"`
	TotalTestCases  int    `json:"total_test_cases"`
	ExecutionTime   int64  `json:"execution_time"`
	Output          string `json:"output"`
	ErrorMessage    string `json:"error_message"`
}

// Problem is an immutable snapshot handed over by the persistence layer.
type Problem struct {
	ID            string     `json:"id"`
	Points        int        `json:"points"`
	TimeLimitMs   int64      `json:"time_limit"`
	MemoryLimitMB int64      `json:"memory_limit"`
	TestCases     []TestCase `json:"test_cases"`
}

type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	IsHidden       bool   `json:"is_hidden"`
	TimeLimitMs    int64  `json:"time_limit"`
	MemoryLimitMB  int64  `json:"memory_limit"`
}

// Limits returns the effective time and memory limit of the test case,
// falling back to the problem defaults and then to the global defaults.
func (p Problem) Limits(tc TestCase) (timeLimitMs, memoryLimitMB int64) {
	timeLimitMs = tc.TimeLimitMs
	if timeLimitMs <= 0 {
		timeLimitMs = p.TimeLimitMs
	}
	if timeLimitMs <= 0 {
		timeLimitMs = constants.DefaultTimeLimitMs
	}

	memoryLimitMB = tc.MemoryLimitMB
	if memoryLimitMB <= 0 {
		memoryLimitMB = p.MemoryLimitMB
	}
	if memoryLimitMB <= 0 {
		memoryLimitMB = constants.DefaultMemoryLimitMB
	}
	return timeLimitMs, memoryLimitMB
}
