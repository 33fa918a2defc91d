package constants

import (
	"encoding/json"
	"time"
)

// Queue message types.
const (
	QueueMessageTypeTask      = "task"
	QueueMessageTypeHandshake = "handshake"
	QueueMessageTypeStatus    = "status"
	QueueMessageTypeResult    = "result"
)

// Transcript labels and results.
const (
	SampleTestCaseLabel = "Sample test case "
	HiddenTestCaseLabel = "Hidden test case "

	ResultPassed            = "PASSED"
	ResultFailed            = "FAILED"
	ResultTimeLimitExceeded = "TIME LIMIT EXCEEDED"
	ResultRuntimeError      = "RUNTIME ERROR"
	ResultCompilationError  = "COMPILATION ERROR"
)

// Submission level messages.
const (
	SubmissionMessageAllPassed        = "All test cases passed!"
	SubmissionMessageAllSamplesPassed = "All sample test cases passed!"
	SubmissionMessageNoTestCases      = "No test cases available for this problem"
	SubmissionMessageRuntimeDown      = "Code execution environment not available. Please contact administrator."
	SubmissionMessageExecutionFailed  = "Execution failed: "
	SubmissionMessageUnknownExitCode  = "Unknown error (exit code: %d)"
)

// Compilation failure heuristic. Compiled profiles print CompilationFailedMarker to stderr.
const (
	CompilationFailedMarker = "compilation failed"
	CompilationHeuristic    = "compilation"
)

// Worker specific constants.
type WorkerStatus int

const (
	WorkerStatusIdle WorkerStatus = iota
	WorkerStatusBusy
)

func (ws WorkerStatus) String() string {
	switch ws {
	case WorkerStatusIdle:
		return "idle"
	case WorkerStatusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

func (ws WorkerStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ws.String())
}

// Exit codes.
const (
	ExitCodeSuccess           = 0
	ExitCodeTimeLimitExceeded = 124
	ExitCodeKilled            = 137
)

// Configuration defaults.
const (
	DefaultRabbitmqHost            = "localhost"
	DefaultRabbitmqUser            = "guest"
	DefaultRabbitmqPassword        = "guest"
	DefaultRabbitmqPort            = "5672"
	DefaultRabbitmqPublishChanSize = 100
	DefaultWorkerQueueName         = "submission_queue"
	DefaultResultQueueName         = "submission_results"
	DefaultMaxWorkers              = 4
	DefaultQueuePollIntervalMs     = 1000
	DefaultShutdownGracePeriodSec  = 30
	DefaultDockerImageName         = "judge-executor"
	DefaultExecutionTempDir        = "/tmp/judge-engine"
	DefaultDBHost                  = "localhost"
	DefaultDBPort                  = "5432"
	DefaultDBUser                  = "postgres"
	DefaultDBPassword              = "postgres"
	DefaultDBName                  = "judge"
	DefaultDBSslMode               = "disable"
	DefaultRedisAddr               = "localhost:6379"
	DefaultTestCaseCacheTTLSec     = 300
	DefaultHTTPAddr                = ":8080"
)

// Execution limits.
const (
	DefaultTimeLimitMs   = 2000
	DefaultMemoryLimitMB = 256
	WaitGracePeriod      = 1000 * time.Millisecond
	MinTimeoutSeconds    = 1
)

// Sandbox container constants.
const (
	ContainerCodeDir         = "/code"
	ContainerScratchDir      = "/sandbox"
	ContainerScratchSize     = "rw,exec,nosuid,size=64m,mode=1777"
	ContainerNamePrefix      = "executor-"
	ContainerNofileLimit     = 256
	ContainerNprocLimit      = 512
	ContainerPidsLimit       = 512
	ContainerStopSignal      = "SIGKILL"
	ContainerCleanupTimeout  = 10 * time.Second
	ContainerRuntimeCheckTTL = 5 * time.Second
	MaxCapturedOutputBytes   = 10 * 1024 * 1024
)

// RabbitMQ specific constants.
const (
	RabbitMQReconnectTries = 10
	RabbitMQMaxPriority    = 3
)

// Cache key prefixes.
const (
	CacheKeyTestCases = "judge:testcases:"
	CacheKeyProblem   = "judge:problem:"
)
