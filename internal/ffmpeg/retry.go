package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone          RetryAction = iota
	RetrySoftware                  // Replace the hardware encoder with the software one.
	RetryIncreaseMux               // Raise max_muxing_queue_size to 16384.
	RetryFixTimestamps             // Enable +genpts and avoid_negative_ts.
)

func (a RetryAction) String() string {
	switch a {
	case RetrySoftware:
		return "fall back to software encoder"
	case RetryIncreaseMux:
		return "increase mux queue"
	case RetryFixTimestamps:
		return "fix timestamps"
	}
	return "none"
}

const (
	maxAttempts      = 4
	muxQueueDefault  = 4096
	muxQueueEscalate = 16384
)

// RetryState tracks which fallback fixes have been applied across ffmpeg
// retry attempts for a single file.
type RetryState struct {
	Attempt     int
	MaxAttempts int

	MuxQueueSize int
	TimestampFix bool
}

// NewRetryState returns the initial state for a file.
func NewRetryState() *RetryState {
	return &RetryState{
		MaxAttempts:  maxAttempts,
		MuxQueueSize: muxQueueDefault,
	}
}

// Advance inspects stderr from a failed ffmpeg run, finds the first matching
// error pattern whose fix has not yet been applied, applies that fix, and
// returns the action taken. hardware reports whether the failed attempt used
// a hardware encoder; RetrySoftware tells the caller to switch the plan.
// Returns RetryNone when no fixable pattern matches or the attempt limit is
// reached.
//
// Pattern evaluation order: hardware encoder → mux queue → timestamp →
// hardware as a last resort. Only one fix is applied per call.
func (s *RetryState) Advance(stderr string, hardware bool) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}

	if hardware && MatchHWEncoderFailure(stderr) {
		return RetrySoftware
	}
	if s.MuxQueueSize < muxQueueEscalate && MatchMuxQueueOverflow(stderr) {
		s.MuxQueueSize = muxQueueEscalate
		return RetryIncreaseMux
	}
	if !s.TimestampFix && MatchTimestampIssue(stderr) {
		s.TimestampFix = true
		return RetryFixTimestamps
	}
	if hardware {
		return RetrySoftware
	}

	return RetryNone
}
