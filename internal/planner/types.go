package planner

import "github.com/backmassage/vidcompress/internal/codec"

// Action describes the per-file processing decision.
type Action int

const (
	ActionSkip          Action = iota // Already conforms; nothing to do.
	ActionRemux                       // Copy both streams into the target container.
	ActionAudioReencode               // Copy video, re-encode audio to AAC stereo.
	ActionTranscode                   // Re-encode video and audio.
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionRemux:
		return "remux"
	case ActionAudioReencode:
		return "audio-reencode"
	case ActionTranscode:
		return "transcode"
	}
	return "unknown"
}

// FilePlan holds the complete set of decisions for processing a single media
// file. It is produced by BuildPlan and consumed by the ffmpeg package to
// construct command arguments and by the executor for file promotion.
type FilePlan struct {
	Action Action
	Reason string // Human-readable mismatch summary.

	InputPath  string
	OutputPath string // Final location after promotion.
	WorkPath   string // Temporary file ffmpeg writes to.
	Container  codec.Container

	Video VideoPlan
	Audio AudioPlan

	KeepOriginal bool
}

// VideoPlan describes how the primary video stream is produced.
type VideoPlan struct {
	StreamIndex int // Absolute stream index in the source.
	Copy        bool
	Codec       codec.Video
	Encoder     string // Empty when Copy is set.
	Hardware    bool
	Family      codec.HWFamily
	Quality     Quality
}

// AudioPlan describes how the primary audio stream is produced.
type AudioPlan struct {
	None        bool // Source has no audio.
	Copy        bool
	StreamIndex int // Position among the source's audio streams.
	Codec       codec.Audio
	Channels    int
	Bitrate     string // e.g. "192k"
}

// Quality is the resolved rate control for an encode.
type Quality struct {
	CRF       int    // Software encoders.
	Preset    string // x264/x265 only.
	HWQuality int    // Hardware encoders; meaning depends on the family.
}
