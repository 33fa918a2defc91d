package messages

import (
	"encoding/json"
	"time"

	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

type QueueMessage struct {
	Type      string          `json:"type" validate:"required,oneof=task status handshake"`
	MessageID string          `json:"message_id"`
	Payload   json.RawMessage `json:"payload"`
}

// TaskQueueMessage asks the engine to judge a submission that already exists in PENDING state.
type TaskQueueMessage struct {
	SubmissionID string `json:"submission_id" validate:"required"`
}

type ResponseQueueMessage struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id"`
	Ok        bool            `json:"ok"`
	Payload   json.RawMessage `json:"payload"`
}

type ResponseHandshakePayload struct {
	Languages []languages.LanguageSpec `json:"languages"`
}

type WorkerStatus struct {
	WorkerID     int                    `json:"worker_id"`
	Status       constants.WorkerStatus `json:"status"`
	SubmissionID string                 `json:"submission_id"`
}

type ResponseWorkerStatusPayload struct {
	BusyWorkers  int            `json:"busy_workers"`
	TotalWorkers int            `json:"total_workers"`
	QueueLength  int            `json:"queue_length"`
	WorkerStatus []WorkerStatus `json:"worker_status"`
}

// ResultEvent is published once a submission reaches a terminal state.
type ResultEvent struct {
	SubmissionID    string            `json:"submission_id"`
	ProblemID       string            `json:"problem_id"`
	UserID          string            `json:"user_id"`
	Status          submission.Status `json:"status"`
	Score           int               `json:"score"`
	TestCasesPassed int               `json:"test_cases_passed"`
	TotalTestCases  int               `json:"total_test_cases"`
	IsTestRun       bool              `json:"is_test_run"`
	FinishedAt      time.Time         `json:"finished_at"`
}

func NewResultEvent(sub *submission.Submission, finishedAt time.Time) ResultEvent {
	return ResultEvent{
		SubmissionID:    sub.ID,
		ProblemID:       sub.ProblemID,
		UserID:          sub.UserID,
		Status:          sub.Status,
		Score:           sub.Score,
		TestCasesPassed: sub.TestCasesPassed,
		TotalTestCases:  sub.TotalTestCases,
		IsTestRun:       sub.IsTestRun,
		FinishedAt:      finishedAt,
	}
}
