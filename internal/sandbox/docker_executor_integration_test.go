//go:build integration

package sandbox_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-maxit/judge-engine/internal/docker"
	"github.com/mini-maxit/judge-engine/internal/sandbox"
)

func newIntegrationExecutor(t *testing.T) *sandbox.DockerExecutor {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	image := os.Getenv("JUDGE_TEST_IMAGE")
	if image == "" {
		image = "bash:5.2"
	}
	cli, err := docker.NewDockerClient()
	require.NoError(t, err)

	exec := sandbox.NewDockerExecutor(cli, image, true, false)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := exec.Available(ctx); err != nil {
		t.Skipf("sandbox runtime not available: %v", err)
	}
	return exec
}

func workDir(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestDockerExecutor_EchoesStdin(t *testing.T) {
	exec := newIntegrationExecutor(t)
	dir := workDir(t, "solution.sh", "read a b; echo $((a+b)); echo warn >&2\n")

	res, err := exec.Execute(context.Background(), sandbox.Spec{
		SubmissionID:  "it-echo",
		WorkDir:       dir,
		Command:       []string{"bash", "solution.sh"},
		Stdin:         "2 3\n",
		TimeLimitMs:   2000,
		MemoryLimitMB: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "5\n", res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.False(t, res.TimedOut)
}

func TestDockerExecutor_TimeLimit(t *testing.T) {
	exec := newIntegrationExecutor(t)
	dir := workDir(t, "solution.sh", "sleep 30\n")

	start := time.Now()
	res, err := exec.Execute(context.Background(), sandbox.Spec{
		SubmissionID:  "it-tle",
		WorkDir:       dir,
		Command:       []string{"bash", "solution.sh"},
		TimeLimitMs:   1000,
		MemoryLimitMB: 64,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 15*time.Second)
}

func TestDockerExecutor_NoNetworkAndReadOnlyCode(t *testing.T) {
	exec := newIntegrationExecutor(t)
	dir := workDir(t, "solution.sh", "touch /code/x 2>/dev/null && echo writable; cat /sys/class/net/*/operstate 2>/dev/null | grep -c up || true\n")

	res, err := exec.Execute(context.Background(), sandbox.Spec{
		SubmissionID:  "it-isolation",
		WorkDir:       dir,
		Command:       []string{"bash", "solution.sh"},
		TimeLimitMs:   2000,
		MemoryLimitMB: 64,
	})
	require.NoError(t, err)
	assert.NotContains(t, res.Stdout, "writable")
	assert.Equal(t, "0\n", res.Stdout)
}
