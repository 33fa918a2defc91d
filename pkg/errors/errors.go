package errors

import "errors"

// Error messages.
var (
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrRuntimeUnavailable   = errors.New("sandbox runtime unavailable")
	ErrExecutionDisabled    = errors.New("sandbox execution disabled")
	ErrNoTestCases          = errors.New("problem has no test cases")
	ErrInvalidTransition    = errors.New("invalid submission status transition")
	ErrNotPending           = errors.New("submission is not pending")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrProblemNotFound      = errors.New("problem not found")
	ErrShutdownTimeout      = errors.New("worker pool shutdown timed out")
	ErrSchedulerRunning     = errors.New("scheduler already running")
	ErrSchedulerStopped     = errors.New("scheduler is not running")
	ErrUnknownMessageType   = errors.New("unknown message type")
	ErrEmptySubmissionID    = errors.New("submission id is empty")
	ErrWorkspaceNotPrepared = errors.New("workspace not prepared")
	ErrResponderClosed      = errors.New("responder is closed")
	ErrNoReplyQueue         = errors.New("message has no reply queue")
)
