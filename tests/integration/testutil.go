// Package integration runs the repokit binary end to end.
package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	// repokitBin is the path to the built repokit binary.
	repokitBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// cleanEnv returns os.Environ() without REPOKIT_* and XDG_* variables.
func cleanEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "REPOKIT_") || strings.HasPrefix(e, "XDG_") {
			continue
		}
		env = append(env, e)
	}
	return env
}

// TestEnv is an isolated working directory for one test.
type TestEnv struct {
	t       *testing.T
	WorkDir string
	Env     []string
	Stdin   string
}

// NewTestEnv creates a TestEnv rooted in a fresh temp directory. Without
// flags the binary resolves .repokit and .repokit-db under WorkDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build repokit: %v", buildErr)
	}
	if repokitBin == "" {
		t.Fatal("repokit binary not built (repokitBin is empty)")
	}
	return &TestEnv{t: t, WorkDir: t.TempDir()}
}

// Path returns a path under WorkDir.
func (e *TestEnv) Path(elem ...string) string {
	return filepath.Join(append([]string{e.WorkDir}, elem...)...)
}

// CmdResult holds the result of a repokit command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes repokit in WorkDir with the given arguments.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	cmd := exec.Command(repokitBin, args...)
	cmd.Dir = e.WorkDir
	cmd.Env = append(cleanEnv(), e.Env...)
	cmd.Stdin = strings.NewReader(e.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.t.Fatalf("failed to run repokit: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRun executes repokit and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("repokit %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// Model is the JSON form of any stored model.
type Model struct {
	Type  string   `json:"type"`
	ID    string   `json:"id"`
	Str   string   `json:"str_column"`
	Int   int64    `json:"int_column"`
	Float *float64 `json:"float_column"`
	Bool  *bool    `json:"bool_column"`
}

// Page is the JSON form of a list result.
type Page struct {
	Count   int     `json:"count"`
	Objects []Model `json:"objects"`
}
