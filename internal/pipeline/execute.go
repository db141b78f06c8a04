package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/display"
	"github.com/backmassage/vidcompress/internal/ffmpeg"
	"github.com/backmassage/vidcompress/internal/fsutil"
	"github.com/backmassage/vidcompress/internal/logging"
	"github.com/backmassage/vidcompress/internal/planner"
)

// Execution errors. Both leave the original untouched.
var (
	ErrInsufficientSpace = errors.New("insufficient free space")
	ErrEmptyOutput       = errors.New("ffmpeg produced an empty output")
)

// freeBytes is replaced in tests.
var freeBytes = fsutil.FreeBytes

// Result is what the executor reports for one plan.
type Result struct {
	Success     bool
	Err         error
	OutputBytes int64
	Attempts    int
	Software    bool // A hardware encode fell back to software.
}

// Executor runs a FilePlan: ffmpeg into the work file with retry fallbacks,
// promotion to the final path, and removal of the original.
type Executor struct {
	Runner Runner
	Log    *logging.Logger
	Build  ffmpeg.BuildOptions

	Strict bool // No retry fallbacks.
	DryRun bool

	// Software fallback quality.
	CRF    int
	Preset string
}

// Execute carries out plan. It never deletes the original unless the new
// file has been promoted and is a different file.
func (e *Executor) Execute(ctx context.Context, plan *planner.FilePlan) Result {
	if plan.Action == planner.ActionSkip {
		return Result{Success: true}
	}

	if e.DryRun {
		verb := "write"
		if !plan.KeepOriginal && plan.OutputPath != plan.InputPath {
			verb = "write and delete original"
		}
		e.Log.Success("[DRY] Would %s (%s) -> %s, %s", plan.Action, describeVideo(plan), filepath.Base(plan.OutputPath), verb)
		return Result{Success: true}
	}

	inSize := fsutil.FileSize(plan.InputPath)
	if err := e.checkSpace(plan.OutputPath, inSize); err != nil {
		return Result{Err: err}
	}

	res := e.runWithRetry(ctx, plan)
	if !res.Success {
		os.Remove(plan.WorkPath)
		return res
	}

	// --- Verify and promote ---
	outSize := fsutil.FileSize(plan.WorkPath)
	if outSize <= 0 {
		os.Remove(plan.WorkPath)
		res.Success = false
		res.Err = ErrEmptyOutput
		return res
	}
	if err := fsutil.Promote(plan.WorkPath, plan.OutputPath); err != nil {
		os.Remove(plan.WorkPath)
		res.Success = false
		res.Err = err
		return res
	}
	res.OutputBytes = outSize

	// --- Remove original ---
	if !plan.KeepOriginal && !fsutil.SameFile(plan.InputPath, plan.OutputPath) {
		if err := os.Remove(plan.InputPath); err != nil {
			res.Success = false
			res.Err = fmt.Errorf("remove original: %w", err)
			return res
		}
		e.Log.Debug("  Removed original %s", filepath.Base(plan.InputPath))
	}
	return res
}

// checkSpace fails when the output directory has less free space than the
// input size. Platforms without a free-space query are not checked.
func (e *Executor) checkSpace(output string, need int64) error {
	free, err := freeBytes(filepath.Dir(output))
	if err != nil {
		if !errors.Is(err, fsutil.ErrUnsupported) {
			e.Log.Debug("  Free space check failed: %v", err)
		}
		return nil
	}
	if need > 0 && free < uint64(need) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientSpace,
			display.FormatBytes(need), display.FormatBytes(int64(free)))
	}
	return nil
}

// runWithRetry runs ffmpeg, classifies stderr on failure, applies the first
// matching fix, and retries until success, no applicable fix, or the attempt
// limit. The work file is removed between attempts.
func (e *Executor) runWithRetry(ctx context.Context, plan *planner.FilePlan) Result {
	rs := ffmpeg.NewRetryState()
	var res Result

	for {
		res.Attempts++
		args := ffmpeg.Build(plan, e.Build, rs)
		if e.Log.Verbose() {
			e.Log.Debug("  ffmpeg %s", strings.Join(args, " "))
		}

		run := e.Runner.Run(ctx, args)
		if run.Err == nil {
			res.Success = true
			return res
		}
		os.Remove(plan.WorkPath)

		// Stop retrying if the context has been cancelled (e.g. SIGINT).
		if ctx.Err() != nil {
			e.Log.Warn("Interrupted, aborting")
			res.Err = fmt.Errorf("interrupted: %w", ctx.Err())
			return res
		}

		if e.Strict {
			res.Err = run.Failure()
			logStderr(e.Log, "ffmpeg failed (strict mode, no retry)", run.Stderr)
			return res
		}

		action := rs.Advance(run.Stderr, codec.IsHardwareEncoder(plan.Video.Encoder))
		if action == ffmpeg.RetrySoftware && !plan.FallbackToSoftware(e.CRF, e.Preset) {
			action = ffmpeg.RetryNone
		}
		if action == ffmpeg.RetryNone {
			res.Err = run.Failure()
			logStderr(e.Log, "ffmpeg failed (no applicable retry)", run.Stderr)
			return res
		}
		if action == ffmpeg.RetrySoftware {
			res.Software = true
		}
		e.Log.Warn("Retry %d: %s", rs.Attempt, action)
	}
}

// describeVideo is the short video handling label used in log lines.
func describeVideo(plan *planner.FilePlan) string {
	if plan.Video.Copy {
		return "video copy"
	}
	return plan.Video.Encoder
}

func logStderr(log *logging.Logger, headline, stderr string) {
	log.Error("%s", headline)
	tail := ffmpeg.StderrTail(stderr, 20)
	if len(tail) == 0 {
		return
	}
	log.Error("Last ffmpeg output:")
	for _, l := range tail {
		log.Error("  %s", l)
	}
}
