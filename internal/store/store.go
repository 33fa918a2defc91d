package store

import (
	"context"

	"github.com/mini-maxit/judge-engine/pkg/submission"
)

// Store is the persistence boundary of the engine. Loaded problems and test
// cases are value snapshots; SaveSubmission is an upsert by id where the last
// write wins.
type Store interface {
	LoadSubmission(ctx context.Context, id string) (*submission.Submission, error)
	LoadProblem(ctx context.Context, id string) (*submission.Problem, error)
	LoadTestCases(ctx context.Context, problemID string) ([]submission.TestCase, error)
	SaveSubmission(ctx context.Context, sub *submission.Submission) error
}
