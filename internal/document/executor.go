package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// Exit codes given special meaning. They match the POSIX shell conventions so
// both exec modes report a missing engine the same way.
const (
	ExitCommandNotFound = 127
	ExitNotExecutable   = 126
	exitInterrupted     = -1
)

// waitDelay bounds how long Wait keeps reading output pipes after the engine
// was killed; grandchildren may hold them open.
const waitDelay = 2 * time.Second

// ErrWorkingDirectory reports that a process could not be started because its
// working directory is missing or inaccessible.
var ErrWorkingDirectory = errors.New("working directory unavailable")

// Invocation is one process launch.
type Invocation struct {
	Argv []string
	Dir  string
	// Capture collects stdout/stderr; otherwise both are discarded.
	Capture bool
}

// Outcome is what an Executor observed.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is set when the process did not run to completion on its own
	// (context cancellation, deadline, unexpected start failure).
	Err error
}

// Executor launches processes. Tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) Outcome
}

// ProcessExecutor runs invocations with os/exec.
type ProcessExecutor struct{}

func (ProcessExecutor) Execute(ctx context.Context, inv Invocation) Outcome {
	if len(inv.Argv) == 0 {
		return Outcome{ExitCode: exitInterrupted, Err: errors.New("empty argument vector")}
	}

	// #nosec G204 -- the command template is operator configuration
	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	if inv.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	out := Outcome{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		out.ExitCode = exitInterrupted
		out.Err = ctxErr
		return out
	}

	var (
		exitErr *exec.ExitError
		pathErr *fs.PathError
	)
	switch {
	case errors.As(err, &pathErr) && pathErr.Op == "chdir":
		out.ExitCode = exitInterrupted
		out.Err = fmt.Errorf("%w: %s: %w", ErrWorkingDirectory, pathErr.Path, pathErr.Err)
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode < 0 {
			out.Err = err
		}
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		out.ExitCode = ExitCommandNotFound
		out.Stderr = err.Error()
	case errors.Is(err, fs.ErrPermission):
		out.ExitCode = ExitNotExecutable
		out.Stderr = err.Error()
	default:
		out.ExitCode = exitInterrupted
		out.Err = err
	}
	return out
}
