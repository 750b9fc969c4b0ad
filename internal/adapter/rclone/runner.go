package rclone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/Ning0612/unfold/internal/domain"
)

// rclone exit codes
const (
	exitDirNotFound  = 3
	exitFileNotFound = 4
)

// Result holds the output of one rclone invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes rclone with arguments
type Runner interface {
	// Run executes the binary. A non-zero exit is returned as an error
	// together with the captured result.
	Run(ctx context.Context, args ...string) (*Result, error)
}

// ExecRunner runs the real rclone binary through os/exec
type ExecRunner struct {
	Binary string
}

// NewExecRunner creates a runner for binary ("rclone" when empty)
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = "rclone"
	}
	return &ExecRunner{Binary: binary}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Args: args, Code: result.ExitCode, Stderr: result.Stderr}
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %s: %v", domain.ErrBackendUnavailable, r.Binary, err)
	default:
		result.ExitCode = -1
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
}

// ExitError is a non-zero rclone exit
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := lastLine(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("rclone %s: exit status %d", subcommand(e.Args), e.Code)
	}
	return fmt.Sprintf("rclone %s: exit status %d: %s", subcommand(e.Args), e.Code, msg)
}

// Unwrap maps exit codes onto domain errors
func (e *ExitError) Unwrap() error {
	switch e.Code {
	case exitDirNotFound, exitFileNotFound:
		return domain.ErrNotFound
	default:
		return domain.ErrBackend
	}
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
