package pipeline

import (
	"time"

	"github.com/backmassage/vidcompress/internal/planner"
)

// Outcome is the result of processing one file.
type Outcome struct {
	Path       string
	OutputPath string
	Action     planner.Action
	Classified bool // Action is meaningful; false when inspection failed.
	Success    bool
	Err        error
	DryRun     bool

	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration

	Note string // e.g. "normalized copy exists"
}

// MetricLabel is the action label used for metrics. Files that failed
// before classification are reported as "inspect".
func (o Outcome) MetricLabel() string {
	if !o.Classified {
		return "inspect"
	}
	return o.Action.String()
}

// Failure is one failed file as reported in the summary.
type Failure struct {
	Path   string
	Reason string
}

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Processed      int
	Skipped        int
	Remuxed        int
	AudioReencoded int
	Transcoded     int
	Failed         int

	TotalInputBytes  int64
	TotalOutputBytes int64

	Failures []Failure
}

// Record folds one outcome into the totals.
func (s *RunStats) Record(o Outcome) {
	s.Processed++
	if !o.Success {
		s.Failed++
		reason := "unknown error"
		if o.Err != nil {
			reason = o.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{Path: o.Path, Reason: reason})
		return
	}

	switch o.Action {
	case planner.ActionSkip:
		s.Skipped++
		return
	case planner.ActionRemux:
		s.Remuxed++
	case planner.ActionAudioReencode:
		s.AudioReencoded++
	case planner.ActionTranscode:
		s.Transcoded++
	}
	if !o.DryRun {
		s.TotalInputBytes += o.InputBytes
		s.TotalOutputBytes += o.OutputBytes
	}
}

// Converted is the number of files that produced a new output.
func (s *RunStats) Converted() int {
	return s.Remuxed + s.AudioReencoded + s.Transcoded
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}
