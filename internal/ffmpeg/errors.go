package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrTimeout is wrapped by ExecError when an invocation exceeds its timeout.
var ErrTimeout = errors.New("ffmpeg timed out")

// ExecError is a failed ffmpeg invocation with the tail of its stderr.
type ExecError struct {
	Err  error
	Tail []string
}

func (e *ExecError) Error() string {
	if len(e.Tail) == 0 {
		return fmt.Sprintf("ffmpeg: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, e.Tail[len(e.Tail)-1])
}

func (e *ExecError) Unwrap() error { return e.Err }

// StderrTail returns the last n non-empty lines of stderr.
func StderrTail(stderr string, n int) []string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(trimmed, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Pre-compiled regexes for classifying ffmpeg stderr output into retryable
// error categories. Checked in order by [RetryState.Advance]; the first
// matching pattern whose fix has not yet been applied wins.
var (
	reHWEncoderFailure = regexp.MustCompile(
		`(?i)_(vaapi|nvenc|qsv|videotoolbox).*(error|failed|not supported)|` +
			`Error while opening encoder|Could not open encoder|` +
			`Failed to (initialise|initialize|create|open) .*(device|encoder|session)|` +
			`No VA display found|OpenEncodeSessionEx failed|` +
			`Error creating a MFX session|cannot create compression session|` +
			`Error (while )?(creating|initializing) (the )?(hardware|hw) (device|frames)|` +
			`Impossible to convert between the formats`)

	reMuxQueueOverflow = regexp.MustCompile(
		`Too many packets buffered for output stream`)

	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`invalid, non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|missing PTS|Timestamps are unset`)
)

// MatchHWEncoderFailure reports whether stderr shows a hardware encoder or
// device failure.
func MatchHWEncoderFailure(stderr string) bool {
	return reHWEncoderFailure.MatchString(stderr)
}

// MatchMuxQueueOverflow reports whether stderr contains a mux queue overflow.
func MatchMuxQueueOverflow(stderr string) bool {
	return reMuxQueueOverflow.MatchString(stderr)
}

// MatchTimestampIssue reports whether stderr contains a timestamp discontinuity.
func MatchTimestampIssue(stderr string) bool {
	return reTimestampIssue.MatchString(stderr)
}
