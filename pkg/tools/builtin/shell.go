// Package builtin holds the tools the runtime ships with, currently the
// shell executor.
package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/vvoland/agentrt/pkg/protocol"
)

const defaultTimeout = 60 * time.Second

// ShellExecutor runs normalized shell invocations.
type ShellExecutor struct {
	defaultTimeout time.Duration
}

// NewShellExecutor creates a shell executor. defaultTimeoutMs bounds commands
// that carry no explicit timeout; zero falls back to one minute.
func NewShellExecutor(defaultTimeoutMs int64) *ShellExecutor {
	timeout := defaultTimeout
	if defaultTimeoutMs > 0 {
		timeout = time.Duration(defaultTimeoutMs) * time.Millisecond
	}
	return &ShellExecutor{defaultTimeout: timeout}
}

// Exec runs the command described by params and returns its combined output.
// A non-zero exit is reported in the output, not as an error; errors are
// reserved for invocations that could not run at all.
func (e *ShellExecutor) Exec(ctx context.Context, params protocol.ShellToolCallParams, fallbackWorkdir string) (string, error) {
	if len(params.Command) == 0 {
		return "", errors.New("shell command is empty")
	}

	timeout := e.defaultTimeout
	if params.TimeoutMs != nil && *params.TimeoutMs > 0 {
		timeout = time.Duration(*params.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, params.Command[0], params.Command[1:]...)
	if params.Workdir != "" {
		cmd.Dir = params.Workdir
	} else if fallbackWorkdir != "" {
		cmd.Dir = fallbackWorkdir
	}

	// New process group so cancellation can take the whole tree down.
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Setpgid: true,
		}
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting command: %w", err)
	}

	err := cmd.Wait()
	output := outBuf.String() + errBuf.String()

	if ctx.Err() != nil {
		return "", fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		return fmt.Sprintf("Error executing command: %s\nOutput: %s", err, output), nil
	}
	if output == "" {
		return "<no output>", nil
	}
	return output, nil
}
