// Package ffmpeg builds and executes ffmpeg commands with a shared argument
// skeleton and unified retry logic.
//
//   - Build(plan, opts, retry) → []string
//     Remux (-c:v copy -c:a copy), audio re-encode (-c:v copy, AAC stereo)
//     or transcode (encoder + rate control, AAC stereo), always writing to
//     the plan's work path.
//   - (*CommandRunner).Run(ctx, args) → ExecResult
//     Runs ffmpeg under a timeout with stderr captured and optionally tee'd.
//   - (*RetryState).Advance(stderr, hardware) → RetryAction
//     One fix per attempt: software fallback → mux queue → timestamps.
//     Max 4 attempts per file.
package ffmpeg
