package planner

import (
	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/probe"
)

// Options carries the run-wide inputs BuildPlan needs beyond the profile.
// It is built once per run.
type Options struct {
	Target       config.TargetProfile
	KeepOriginal bool
	HWFamily     codec.HWFamily
	HWAvailable  bool // Result of the startup capability trial.
	CRF          int
	Preset       string
	HWQuality    int
	AudioBitrate string
}

// OptionsFromConfig builds Options for a run. hwAvailable is the result of
// the capability trial for family.
func OptionsFromConfig(cfg *config.Config, family codec.HWFamily, hwAvailable bool) Options {
	return Options{
		Target:       cfg.Target(),
		KeepOriginal: cfg.KeepOriginal,
		HWFamily:     family,
		HWAvailable:  hwAvailable,
		CRF:          cfg.CRF,
		Preset:       cfg.Preset,
		HWQuality:    cfg.HWQuality,
		AudioBitrate: cfg.AudioBitrate,
	}
}

// BuildPlan produces a complete FilePlan from a media profile. This is the
// central decision matrix that the pipeline calls for every file.
//
// Flow:
//  1. Classify against the target
//  2. Choose the video encoder (hardware only when the trial succeeded)
//  3. Build the audio plan
//  4. Derive output and work paths
func BuildPlan(p probe.MediaProfile, opts Options) *FilePlan {
	t := opts.Target
	plan := &FilePlan{
		Action:       Classify(p, t),
		Reason:       Explain(p, t),
		InputPath:    p.Path,
		Container:    t.Container,
		KeepOriginal: opts.KeepOriginal,
	}

	// --- Video ---
	plan.Video.Codec = t.VideoCodec
	plan.Video.StreamIndex = p.VideoIndex
	switch plan.Action {
	case ActionSkip, ActionRemux, ActionAudioReencode:
		plan.Video.Copy = true
	case ActionTranscode:
		enc, hw := codec.Encoder(t.VideoCodec, opts.HWFamily, opts.HWAvailable)
		plan.Video.Encoder = enc
		plan.Video.Hardware = hw
		if hw {
			plan.Video.Family = opts.HWFamily
		} else {
			plan.Video.Family = codec.HWNone
		}
		plan.Video.Quality = ResolveQuality(t.VideoCodec, plan.Video.Family, opts.CRF, opts.Preset, opts.HWQuality)
	}

	// --- Audio ---
	plan.Audio = BuildAudioPlan(plan.Action, p, t, opts.AudioBitrate)

	// --- Paths ---
	if plan.Action != ActionSkip {
		plan.SetOutput(OutputPath(p.Path, plan.Action, t.Container, opts.KeepOriginal))
	}
	return plan
}

// FallbackToSoftware switches a hardware transcode plan to the software
// encoder for the same codec. It reports false when the plan was not using
// a hardware encoder.
func (p *FilePlan) FallbackToSoftware(crf int, preset string) bool {
	if p.Action != ActionTranscode || !p.Video.Hardware {
		return false
	}
	p.Video.Encoder = codec.SoftwareEncoder(p.Video.Codec)
	p.Video.Hardware = false
	p.Video.Family = codec.HWNone
	p.Video.Quality = ResolveQuality(p.Video.Codec, codec.HWNone, crf, preset, 0)
	return true
}
