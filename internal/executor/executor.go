// ============================================================================
// simjobs Executor - External Process Invocation
// ============================================================================
//
// Package: internal/executor
// File: executor.go
// Function: Runs external programs (scheduler submit, remote copy helpers)
//           and reports what happened instead of discarding it
//
// Execution Model:
//   ┌─────────────────────────────────────┐
//   │  Runner.Run(ctx, cmd)               │
//   │   ├─ optional timeout Context       │
//   │   ├─ exec in cmd.Dir                │
//   │   ├─ capture combined output        │
//   │   └─ Result{ExitCode, Output, ...}  │
//   └─────────────────────────────────────┘
//
// Exit Status:
//   - Process ran and exited:  ExitCode = status, Error = nil
//   - Process could not start: ExitCode = -1, Error = cause
//   - Context expired:         ExitCode = -1, Error = ctx.Err()
//
// Whether a non-zero exit status matters is the caller's decision.
//
// ============================================================================

package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/ChuLiYu/simjobs/pkg/types"
)

const waitDelay = 2 * time.Second

// ErrEmptyCommand is returned for a Command without a program name.
var ErrEmptyCommand = errors.New("executor: empty command")

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, cmd types.Command) types.Result
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration // zero means no timeout
}

// NewExecRunner returns an ExecRunner with the given timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run starts cmd, waits for it and captures its exit status and output.
func (r *ExecRunner) Run(ctx context.Context, cmd types.Command) types.Result {
	start := time.Now()
	if cmd.Name == "" {
		return types.Result{ExitCode: -1, Error: ErrEmptyCommand}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &out
	c.Stderr = &out
	// children that inherit the pipes must not hold Wait past cancellation
	c.WaitDelay = waitDelay

	err := c.Run()
	result := types.Result{
		ExitCode: 0,
		Output:   out.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.Error = ctx.Err()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
		result.Error = err
	}
	return result
}
