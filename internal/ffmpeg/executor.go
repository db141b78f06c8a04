package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// stderrTailLines is how much ffmpeg output a failure keeps.
const stderrTailLines = 20

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Failure converts a failed result into an *ExecError carrying the stderr
// tail. It returns nil for a successful result.
func (r ExecResult) Failure() error {
	if r.Err == nil {
		return nil
	}
	return &ExecError{Err: r.Err, Tail: StderrTail(r.Stderr, stderrTailLines)}
}

// CommandRunner runs the ffmpeg binary. Every invocation is bounded by
// Timeout when it is positive.
type CommandRunner struct {
	Path    string
	Timeout time.Duration

	// Progress, when set, receives ffmpeg's stderr in real time in
	// addition to the captured copy.
	Progress io.Writer
}

// NewCommandRunner returns a runner for bin.
func NewCommandRunner(bin string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{Path: bin, Timeout: timeout}
}

// WithTimeout returns a copy of r with a different timeout.
func (r *CommandRunner) WithTimeout(d time.Duration) *CommandRunner {
	cp := *r
	cp.Timeout = d
	return &cp
}

// Run executes ffmpeg with args. stderr is always captured for retry
// classification; when Progress is set it is tee'd there as well.
func (r *CommandRunner) Run(ctx context.Context, args []string) ExecResult {
	bin := r.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)

	var stderrBuf bytes.Buffer
	if r.Progress != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, r.Progress)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
	}
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
