// Package integration provides CLI integration tests for innkeeper.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	// innkeeperBin is the path to the built innkeeper binary.
	innkeeperBin string
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
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetInnkeeperBin sets the path to the innkeeper binary (called from TestMain).
func SetInnkeeperBin(path string) {
	innkeeperBin = path
}

// SetBuildErr sets the build error (called from TestMain).
func SetBuildErr(err error) {
	buildErr = err
}

// TestEnv provides an isolated test environment with its own config and
// data directory and a scrubbed process environment.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
	// Vars are passed to the binary as its entire environment besides
	// PATH and HOME.
	Vars map[string]string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build innkeeper: %v", buildErr)
	}
	if innkeeperBin == "" {
		t.Fatal("innkeeper binary not built (innkeeperBin is empty)")
	}

	tempDir := t.TempDir()
	return &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
		Vars: map[string]string{
			"AWS_CONFIG_FILE":             filepath.Join(tempDir, "aws-config"),
			"AWS_SHARED_CREDENTIALS_FILE": filepath.Join(tempDir, "aws-credentials"),
		},
	}
}

// WriteConfig writes config.yaml into the environment's config directory.
func (e *TestEnv) WriteConfig(content string) {
	e.t.Helper()
	if err := os.MkdirAll(e.Config, 0o755); err != nil {
		e.t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(e.Config, "config.yaml"), []byte(content), 0o644); err != nil {
		e.t.Fatalf("failed to write config: %v", err)
	}
}

// CmdResult holds the result of an innkeeper command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunInnkeeper executes the innkeeper CLI with the given arguments from
// the environment's temp directory, so no stray .env is picked up.
func (e *TestEnv) RunInnkeeper(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.Config, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(innkeeperBin, allArgs...)
	cmd.Dir = e.TempDir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + e.TempDir}
	for k, v := range e.Vars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run innkeeper: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunInnkeeper executes the innkeeper CLI and fails the test if it
// returns non-zero.
func (e *TestEnv) MustRunInnkeeper(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunInnkeeper(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("innkeeper %s failed with exit code %d:\nstdout: %s\nstderr: %s",
			strings.Join(args, " "), result.ExitCode, result.Stdout, result.Stderr)
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
