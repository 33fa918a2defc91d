package evaluator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/internal/metrics"
	"github.com/mini-maxit/judge-engine/internal/sandbox"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

// Evaluator turns a submission and a problem snapshot into a terminal verdict.
// It never returns an error: every failure is expressed as a verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, sub *submission.Submission, problem *submission.Problem) submission.Verdict
}

type evaluator struct {
	logger *zap.SugaredLogger
	runner *sandbox.Runner
}

func NewEvaluator(runner *sandbox.Runner) Evaluator {
	return &evaluator{
		logger: logger.NewNamedLogger("evaluator"),
		runner: runner,
	}
}

// SelectTestCases returns the cases to run: samples only for test runs,
// otherwise samples followed by hidden cases, each group in stored order.
func SelectTestCases(testCases []submission.TestCase, isTestRun bool) []submission.TestCase {
	selected := make([]submission.TestCase, 0, len(testCases))
	for _, tc := range testCases {
		if !tc.IsHidden {
			selected = append(selected, tc)
		}
	}
	if isTestRun {
		return selected
	}
	for _, tc := range testCases {
		if tc.IsHidden {
			selected = append(selected, tc)
		}
	}
	return selected
}

func (e *evaluator) Evaluate(
	ctx context.Context,
	sub *submission.Submission,
	problem *submission.Problem,
) submission.Verdict {
	cases := SelectTestCases(problem.TestCases, sub.IsTestRun)

	if err := e.runner.Available(ctx); err != nil {
		e.logger.Errorf("Sandbox unavailable: %s [SubmissionID: %s]", err, sub.ID)
		return submission.Verdict{
			Status:         submission.RuntimeError,
			TotalTestCases: len(cases),
			ErrorMessage:   constants.SubmissionMessageRuntimeDown,
		}
	}

	profile, err := languages.Resolve(sub.Language)
	if err != nil {
		e.logger.Errorf("Cannot evaluate: %s [SubmissionID: %s]", err, sub.ID)
		return submission.Verdict{
			Status:         submission.RuntimeError,
			TotalTestCases: len(cases),
			ErrorMessage:   err.Error(),
		}
	}

	if len(cases) == 0 {
		e.logger.Errorf("%s: %s [SubmissionID: %s]", errors.ErrNoTestCases, problem.ID, sub.ID)
		return submission.Verdict{
			Status:       submission.RuntimeError,
			ErrorMessage: constants.SubmissionMessageNoTestCases,
		}
	}

	ws, err := e.runner.Prepare(sub.ID, profile, sub.Code)
	if err != nil {
		e.logger.Errorf("Failed to prepare workspace: %s [SubmissionID: %s]", err, sub.ID)
		return executionFailed(err, len(cases))
	}
	defer e.runner.Cleanup(ws)

	return e.runCases(ctx, sub, problem, ws, cases)
}

func (e *evaluator) runCases(
	ctx context.Context,
	sub *submission.Submission,
	problem *submission.Problem,
	ws *sandbox.Workspace,
	cases []submission.TestCase,
) submission.Verdict {
	total := len(cases)
	pointsPerCase := problem.Points / total
	passed := 0
	score := 0
	var elapsedMs int64
	var transcript strings.Builder

	for i, tc := range cases {
		label := constants.SampleTestCaseLabel
		if tc.IsHidden {
			label = constants.HiddenTestCaseLabel
		}
		timeLimitMs, memoryLimitMB := problem.Limits(tc)
		e.logger.Infof("Running %s%d of %d [SubmissionID: %s]", label, i+1, total, sub.ID)

		res, err := e.runner.Run(ctx, ws, sandbox.Case{
			Input:         tc.Input,
			TimeLimitMs:   timeLimitMs,
			MemoryLimitMB: memoryLimitMB,
		})
		if err != nil {
			metrics.SandboxFailures.Inc()
			e.logger.Errorf("Sandbox failed on %s%d: %s [SubmissionID: %s]", label, i+1, err, sub.ID)
			return executionFailed(err, total)
		}
		elapsedMs += res.Duration.Milliseconds()

		switch {
		case res.TimedOut:
			observe(languageLabel(ws), constants.ResultTimeLimitExceeded, res)
			fmt.Fprintf(&transcript, "%s%d: %s\n", label, i+1, constants.ResultTimeLimitExceeded)

		case res.ExitCode != constants.ExitCodeSuccess && isCompilationFailure(res.Stderr):
			observe(languageLabel(ws), constants.ResultCompilationError, res)
			e.logger.Infof("Compilation failed on %s%d [SubmissionID: %s]", label, i+1, sub.ID)
			return submission.Verdict{
				Status:         submission.CompilationError,
				TotalTestCases: total,
				ExecutionTime:  elapsedMs,
				ErrorMessage:   res.Stderr,
			}

		case res.ExitCode != constants.ExitCodeSuccess:
			observe(languageLabel(ws), constants.ResultRuntimeError, res)
			detail := res.Stderr
			if detail == "" {
				detail = fmt.Sprintf(constants.SubmissionMessageUnknownExitCode, res.ExitCode)
			}
			fmt.Fprintf(&transcript, "%s%d: %s\n", label, i+1, constants.ResultRuntimeError)
			fmt.Fprintf(&transcript, "  Error: %s\n", detail)
			if res.ContainerName != "" {
				fmt.Fprintf(&transcript, "  Debug: Container '%s' preserved for inspection\n", res.ContainerName)
			}

		default:
			expected := strings.TrimSpace(tc.ExpectedOutput)
			actual := strings.TrimSpace(res.Stdout)
			if expected == actual {
				observe(languageLabel(ws), constants.ResultPassed, res)
				passed++
				score += pointsPerCase
				fmt.Fprintf(&transcript, "%s%d: %s\n", label, i+1, constants.ResultPassed)
				continue
			}
			observe(languageLabel(ws), constants.ResultFailed, res)
			fmt.Fprintf(&transcript, "%s%d: %s\n", label, i+1, constants.ResultFailed)
			if !tc.IsHidden {
				fmt.Fprintf(&transcript, "  Expected: %s\n", expected)
				fmt.Fprintf(&transcript, "  Got: %s\n", actual)
			}
		}
	}

	return aggregate(sub.IsTestRun, problem.Points, passed, total, score, elapsedMs, transcript.String())
}

func aggregate(isTestRun bool, points, passed, total, score int, elapsedMs int64, transcript string) submission.Verdict {
	verdict := submission.Verdict{
		TestCasesPassed: passed,
		TotalTestCases:  total,
		ExecutionTime:   elapsedMs,
	}

	switch {
	case passed == total:
		verdict.Status = submission.Accepted
		score = points
	case passed > 0:
		verdict.Status = submission.PartiallyAccepted
	default:
		verdict.Status = submission.WrongAnswer
		score = 0
	}

	if isTestRun {
		if verdict.Status == submission.Accepted {
			verdict.Output = constants.SubmissionMessageAllSamplesPassed
		} else {
			verdict.Output = fmt.Sprintf("%s\nSample test cases passed: %d/%d", transcript, passed, total)
		}
		verdict.Score = 0
		return verdict
	}

	if verdict.Status == submission.Accepted {
		verdict.Output = fmt.Sprintf("%s\nScore: %d", constants.SubmissionMessageAllPassed, points)
	} else {
		verdict.Output = fmt.Sprintf("%s\nTest cases passed: %d/%d\nScore: %d/%d", transcript, passed, total, score, points)
	}
	verdict.Score = score
	return verdict
}

func executionFailed(err error, total int) submission.Verdict {
	return submission.Verdict{
		Status:         submission.RuntimeError,
		TotalTestCases: total,
		ErrorMessage:   constants.SubmissionMessageExecutionFailed + err.Error(),
	}
}

func isCompilationFailure(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), constants.CompilationHeuristic)
}

func languageLabel(ws *sandbox.Workspace) string {
	return ws.Profile.Type.String()
}

func observe(language, result string, res *sandbox.Result) {
	metrics.TestCaseDuration.WithLabelValues(language, result).Observe(float64(res.Duration.Milliseconds()))
}
