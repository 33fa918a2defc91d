package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	customErr "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/pkg/languages"
	"github.com/mini-maxit/judge-engine/utils"
)

// Workspace is the per-submission directory holding the source file.
// It is owned by the worker processing the submission.
type Workspace struct {
	ID           string
	SubmissionID string
	Dir          string
	Profile      languages.Profile
}

// Case is a single test input together with its effective limits.
type Case struct {
	Input         string
	TimeLimitMs   int64
	MemoryLimitMB int64
}

type Runner struct {
	logger   *zap.SugaredLogger
	executor Executor
	baseDir  string
}

func NewRunner(executor Executor, baseDir string) *Runner {
	return &Runner{
		logger:   logger.NewNamedLogger("sandbox-runner"),
		executor: executor,
		baseDir:  baseDir,
	}
}

func (r *Runner) Available(ctx context.Context) error {
	return r.executor.Available(ctx)
}

// Prepare writes the source once into a fresh directory under the base dir.
func (r *Runner) Prepare(submissionID string, profile languages.Profile, source string) (*Workspace, error) {
	if err := utils.ValidateFilename(profile.FileName); err != nil {
		return nil, fmt.Errorf("%w: %s", err, profile.FileName)
	}
	if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(r.baseDir, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	// Mkdir is subject to umask; the container user must be able to traverse it.
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = utils.RemoveIO(dir, true, true)
		return nil, fmt.Errorf("chmod workspace: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, profile.FileName), []byte(source), 0o644); err != nil {
		_ = utils.RemoveIO(dir, true, true)
		return nil, fmt.Errorf("write source: %w", err)
	}

	r.logger.Debugf("Prepared workspace %s [SubmissionID: %s]", dir, submissionID)
	return &Workspace{ID: id, SubmissionID: submissionID, Dir: dir, Profile: profile}, nil
}

// Run executes the profile command against one case. Cases of one workspace
// must be run sequentially.
func (r *Runner) Run(ctx context.Context, ws *Workspace, c Case) (*Result, error) {
	if ws == nil || ws.Dir == "" {
		return nil, customErr.ErrWorkspaceNotPrepared
	}
	return r.executor.Execute(ctx, Spec{
		SubmissionID:  ws.SubmissionID,
		WorkDir:       ws.Dir,
		Command:       ws.Profile.Command,
		Stdin:         c.Input,
		TimeLimitMs:   c.TimeLimitMs,
		MemoryLimitMB: c.MemoryLimitMB,
	})
}

func (r *Runner) Cleanup(ws *Workspace) {
	if ws == nil || ws.Dir == "" {
		return
	}
	if err := utils.RemoveIO(ws.Dir, true, false); err != nil {
		r.logger.Warnf("Failed to remove workspace %s: %s [SubmissionID: %s]", ws.Dir, err, ws.SubmissionID)
	}
}
