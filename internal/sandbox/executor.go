package sandbox

import (
	"context"
	"time"

	"github.com/mini-maxit/judge-engine/pkg/constants"
)

// Spec is a single isolated run of a profile command against one input.
type Spec struct {
	SubmissionID  string
	WorkDir       string // host directory mounted read-only at /code
	Command       []string
	Stdin         string
	TimeLimitMs   int64
	MemoryLimitMB int64
}

// Result is the raw outcome of one sandboxed run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
	// ContainerName is set when the container was preserved for inspection.
	ContainerName string
}

// Executor is the isolation runtime capability.
type Executor interface {
	// Available reports whether runs can be started at all.
	Available(ctx context.Context) error
	Execute(ctx context.Context, spec Spec) (*Result, error)
}

// TimeoutSeconds converts a millisecond limit to the whole seconds passed to
// the in-container timeout wrapper. It never returns less than one second,
// since `timeout 0` disables the limit.
func TimeoutSeconds(timeLimitMs int64) int64 {
	seconds := timeLimitMs / 1000
	if seconds < constants.MinTimeoutSeconds {
		return constants.MinTimeoutSeconds
	}
	return seconds
}

// Deadline is the host side wait bound for a run.
func Deadline(timeLimitMs int64) time.Duration {
	return time.Duration(timeLimitMs)*time.Millisecond + constants.WaitGracePeriod
}
