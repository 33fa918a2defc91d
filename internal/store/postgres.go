package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	customErr "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

type PostgresStore struct {
	logger *zap.SugaredLogger
	db     *sql.DB
}

// NewPostgresStore opens and pings a lib/pq connection pool.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return NewPostgresStoreFromDB(db), nil
}

func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		logger: logger.NewNamedLogger("postgres-store"),
		db:     db,
	}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) LoadSubmission(ctx context.Context, id string) (*submission.Submission, error) {
	query := `SELECT id, problem_id, user_id, code, language, status, score, test_cases_passed,
		total_test_cases, execution_time_ms, output, error_message, is_test_run, submitted_at
		FROM submissions WHERE id = $1`

	sub := &submission.Submission{}
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.ProblemID, &sub.UserID, &sub.Code, &sub.Language, &status, &sub.Score,
		&sub.TestCasesPassed, &sub.TotalTestCases, &sub.ExecutionTime, &sub.Output,
		&sub.ErrorMessage, &sub.IsTestRun, &sub.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", customErr.ErrSubmissionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	sub.Status = submission.Status(status)
	return sub, nil
}

func (s *PostgresStore) LoadProblem(ctx context.Context, id string) (*submission.Problem, error) {
	query := `SELECT id, points, time_limit_ms, memory_limit_mb FROM problems WHERE id = $1`

	problem := &submission.Problem{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&problem.ID, &problem.Points, &problem.TimeLimitMs, &problem.MemoryLimitMB,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", customErr.ErrProblemNotFound, id)
		}
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return problem, nil
}

// LoadTestCases returns the cases of a problem in stored order. Unset
// per-case limits are returned as zero.
func (s *PostgresStore) LoadTestCases(ctx context.Context, problemID string) ([]submission.TestCase, error) {
	query := `SELECT id, input, expected_output, is_hidden,
		COALESCE(time_limit_ms, 0), COALESCE(memory_limit_mb, 0)
		FROM test_cases WHERE problem_id = $1 ORDER BY position, id`

	rows, err := s.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	defer rows.Close()

	var testCases []submission.TestCase
	for rows.Next() {
		var tc submission.TestCase
		if err := rows.Scan(
			&tc.ID, &tc.Input, &tc.ExpectedOutput, &tc.IsHidden, &tc.TimeLimitMs, &tc.MemoryLimitMB,
		); err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return testCases, nil
}

func (s *PostgresStore) SaveSubmission(ctx context.Context, sub *submission.Submission) error {
	query := `INSERT INTO submissions (id, problem_id, user_id, code, language, status, score,
		test_cases_passed, total_test_cases, execution_time_ms, output, error_message, is_test_run, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			test_cases_passed = EXCLUDED.test_cases_passed,
			total_test_cases = EXCLUDED.total_test_cases,
			execution_time_ms = EXCLUDED.execution_time_ms,
			output = EXCLUDED.output,
			error_message = EXCLUDED.error_message`

	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = timeNow()
	}

	_, err := s.db.ExecContext(ctx, query,
		sub.ID, sub.ProblemID, sub.UserID, sub.Code, sub.Language, string(sub.Status), sub.Score,
		sub.TestCasesPassed, sub.TotalTestCases, sub.ExecutionTime, sub.Output, sub.ErrorMessage,
		sub.IsTestRun, submittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	s.logger.Debugf("Saved submission with status %s [SubmissionID: %s]", sub.Status, sub.ID)
	return nil
}
