package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/docker"
	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	customErr "github.com/mini-maxit/judge-engine/pkg/errors"
	"github.com/mini-maxit/judge-engine/utils"
)

// DockerExecutor runs every Spec in a fresh, locked down container.
type DockerExecutor struct {
	logger  *zap.SugaredLogger
	docker  docker.DockerClient
	image   string
	enabled bool
	debug   bool

	mu        sync.Mutex
	checkedAt time.Time
	checkErr  error
}

// NewDockerExecutor accepts a nil client, in which case the runtime is reported unavailable.
func NewDockerExecutor(dCli docker.DockerClient, image string, enabled, debug bool) *DockerExecutor {
	return &DockerExecutor{
		logger:  logger.NewNamedLogger("docker-executor"),
		docker:  dCli,
		image:   image,
		enabled: enabled,
		debug:   debug,
	}
}

func (d *DockerExecutor) Available(ctx context.Context) error {
	if !d.enabled {
		return fmt.Errorf("%w: %w", customErr.ErrRuntimeUnavailable, customErr.ErrExecutionDisabled)
	}
	if d.docker == nil {
		return customErr.ErrRuntimeUnavailable
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.checkedAt.IsZero() && time.Since(d.checkedAt) < constants.ContainerRuntimeCheckTTL {
		return d.checkErr
	}

	err := d.docker.Ping(ctx)
	if err == nil {
		err = d.docker.EnsureImage(ctx, d.image)
	}
	if ctx.Err() != nil {
		// Do not cache a result caused by the caller giving up.
		return ctx.Err()
	}
	if err != nil {
		d.logger.Errorf("Container runtime unavailable: %s", err)
		d.checkErr = fmt.Errorf("%w: %w", customErr.ErrRuntimeUnavailable, err)
	} else {
		d.checkErr = nil
	}
	d.checkedAt = time.Now()
	return d.checkErr
}

func (d *DockerExecutor) Execute(ctx context.Context, spec Spec) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, Deadline(spec.TimeLimitMs))
	defer cancel()

	containerName := constants.ContainerNamePrefix + uuid.NewString()
	containerID, err := d.docker.CreateContainer(
		ctx,
		buildContainerConfig(d.image, spec),
		buildHostConfig(spec),
		containerName,
	)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	preserve := false
	defer func() {
		if preserve {
			d.logger.Infof("Preserving container %s for inspection [SubmissionID: %s]", containerName, spec.SubmissionID)
			return
		}
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), constants.ContainerCleanupTimeout)
		defer cleanupCancel()
		if err := d.docker.ContainerRemove(cleanupCtx, containerID); err != nil {
			d.logger.Warnf("Failed to remove container %s: %s [SubmissionID: %s]", containerID, err, spec.SubmissionID)
		}
	}()

	hijack, err := d.docker.AttachContainer(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("attach container: %w", err)
	}
	defer hijack.Close()

	stdout := newCappedBuffer(constants.MaxCapturedOutputBytes)
	stderr := newCappedBuffer(constants.MaxCapturedOutputBytes)
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		if _, err := stdcopy.StdCopy(stdout, stderr, hijack.Reader); err != nil {
			d.logger.Debugf("Output stream closed: %s [SubmissionID: %s]", err, spec.SubmissionID)
		}
	}()

	start := time.Now()
	if err := d.docker.StartContainer(ctx, containerID); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}
	go d.writeStdin(&hijack, spec.Stdin, spec.SubmissionID)

	exitCode, waitErr := d.docker.WaitContainer(runCtx, containerID)
	duration := time.Since(start)

	timedOut := false
	if waitErr != nil {
		switch {
		case ctx.Err() != nil:
			d.kill(containerID, spec.SubmissionID)
			return nil, ctx.Err()
		case errors.Is(waitErr, context.DeadlineExceeded):
			d.logger.Infof("Deadline of %s exceeded, killing container %s [SubmissionID: %s]",
				Deadline(spec.TimeLimitMs), containerID, spec.SubmissionID)
			d.kill(containerID, spec.SubmissionID)
			timedOut = true
			exitCode = constants.ExitCodeKilled
			hijack.Close()
		default:
			return nil, fmt.Errorf("wait container: %w", waitErr)
		}
	}

	select {
	case <-copyDone:
	case <-time.After(constants.ContainerCleanupTimeout):
		d.logger.Warnf("Timed out draining output of container %s [SubmissionID: %s]", containerID, spec.SubmissionID)
		hijack.Close()
		<-copyDone
	}

	if stdout.truncated || stderr.truncated {
		d.logger.Warnf("Output of container %s truncated to %d bytes [SubmissionID: %s]",
			containerID, constants.MaxCapturedOutputBytes, spec.SubmissionID)
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: int(exitCode),
		TimedOut: timedOut || exitCode == constants.ExitCodeTimeLimitExceeded,
		Duration: duration,
	}
	if d.debug && exitCode != constants.ExitCodeSuccess {
		preserve = true
		result.ContainerName = containerName
	}
	return result, nil
}

func (d *DockerExecutor) writeStdin(hijack *types.HijackedResponse, input, submissionID string) {
	if input != "" {
		if _, err := io.WriteString(hijack.Conn, input); err != nil {
			d.logger.Debugf("Failed to write stdin: %s [SubmissionID: %s]", err, submissionID)
		}
	}
	if err := hijack.CloseWrite(); err != nil {
		d.logger.Debugf("Failed to close stdin: %s [SubmissionID: %s]", err, submissionID)
	}
}

func (d *DockerExecutor) kill(containerID, submissionID string) {
	killCtx, cancel := context.WithTimeout(context.Background(), constants.ContainerCleanupTimeout)
	defer cancel()
	if err := d.docker.ContainerKill(killCtx, containerID, constants.ContainerStopSignal); err != nil {
		d.logger.Warnf("Failed to kill container %s: %s [SubmissionID: %s]", containerID, err, submissionID)
	}
}

func buildContainerConfig(image string, spec Spec) *container.Config {
	script := fmt.Sprintf("timeout %d %s", TimeoutSeconds(spec.TimeLimitMs), utils.ShellQuoteSlice(spec.Command))
	return &container.Config{
		Image:           image,
		Cmd:             []string{"bash", "-c", script},
		WorkingDir:      constants.ContainerCodeDir,
		AttachStdin:     true,
		AttachStdout:    true,
		AttachStderr:    true,
		OpenStdin:       true,
		StdinOnce:       true,
		NetworkDisabled: true,
		StopSignal:      constants.ContainerStopSignal,
		Labels:          map[string]string{"judge.submission": spec.SubmissionID},
	}
}

func buildHostConfig(spec Spec) *container.HostConfig {
	memoryBytes := spec.MemoryLimitMB * 1024 * 1024
	pidsLimit := int64(constants.ContainerPidsLimit)

	return &container.HostConfig{
		AutoRemove:  false,
		NetworkMode: container.NetworkMode("none"),
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   spec.WorkDir,
			Target:   constants.ContainerCodeDir,
			ReadOnly: true,
		}},
		Tmpfs: map[string]string{constants.ContainerScratchDir: constants.ContainerScratchSize},
		Resources: container.Resources{
			Memory:     memoryBytes,
			MemorySwap: memoryBytes,
			NanoCPUs:   1_000_000_000,
			PidsLimit:  &pidsLimit,
			Ulimits: []*container.Ulimit{
				{Name: "nofile", Soft: constants.ContainerNofileLimit, Hard: constants.ContainerNofileLimit},
				{Name: "nproc", Soft: constants.ContainerNprocLimit, Hard: constants.ContainerNprocLimit},
			},
		},
		SecurityOpt:  []string{"no-new-privileges"},
		CgroupnsMode: container.CgroupnsModePrivate,
		IpcMode:      container.IpcMode("private"),
		CapDrop:      []string{"ALL"},
	}
}

// cappedBuffer keeps the first limit bytes and drops the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}
