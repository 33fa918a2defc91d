package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mini-maxit/judge-engine/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{name: "valid simple filename", filename: "solution.py"},
		{name: "valid filename with underscores", filename: "my_solution.cpp"},
		{name: "valid java class file", filename: "Solution.java"},
		{name: "empty filename", filename: "", wantErr: true},
		{name: "parent directory", filename: "..", wantErr: true},
		{name: "path separator", filename: "../etc/passwd", wantErr: true},
		{name: "semicolon injection", filename: "solution.py; rm -rf /", wantErr: true},
		{name: "backtick injection", filename: "solution`whoami`.py", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := utils.ValidateFilename(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrInvalidFilename)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShellQuote(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"python3", "python3"},
		{"/sandbox/solution", "/sandbox/solution"},
		{"", "''"},
		{"a b", "'a b'"},
		{"javac x || { echo 'compilation failed' >&2; }", `'javac x || { echo '"'"'compilation failed'"'"' >&2; }'`},
	}
	for _, c := range cases {
		assert.Equal(t, c.out, utils.ShellQuote(c.in))
	}
}

func TestShellQuoteSlice(t *testing.T) {
	got := utils.ShellQuoteSlice([]string{"sh", "-c", "echo hi; exit 1"})
	assert.Equal(t, "sh -c 'echo hi; exit 1'", got)
}

func TestRemoveIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	assert.Error(t, utils.RemoveIO(dir, false, false))
	require.NoError(t, utils.RemoveIO(dir, true, false))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, utils.RemoveIO(dir, false, true))
}
