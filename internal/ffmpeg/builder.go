package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/planner"
)

// BuildOptions carries the run-wide settings that shape every command.
type BuildOptions struct {
	Verbose      bool
	ShowProgress bool
	VaapiDevice  string
}

// Build constructs the complete ffmpeg argument slice (without the binary
// name) for a plan. Output always goes to plan.WorkPath; promotion to the
// final path is the executor's job.
//
// The retry parameter supplies the current values for mux queue size and
// timestamp fix, which may differ from the defaults after retry adjustments.
func Build(plan *planner.FilePlan, opts BuildOptions, rs *RetryState) []string {
	args := make([]string, 0, 48)

	// --- Preamble ---
	args = append(args, "-hide_banner", "-nostdin", "-y")

	// Loglevel: info when verbose, otherwise error.
	if opts.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	if opts.ShowProgress || opts.Verbose {
		args = append(args, "-stats")
	} else {
		args = append(args, "-nostats")
	}

	// --- Pre-input flags (timestamp fix) ---
	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts")
	}

	vaapi := usesVAAPI(plan)
	if vaapi {
		args = append(args,
			"-init_hw_device", "vaapi=va:"+opts.VaapiDevice,
			"-filter_hw_device", "va",
		)
	}

	// --- Input ---
	args = append(args, "-i", plan.InputPath)

	// --- Stream maps ---
	args = append(args, "-map", fmt.Sprintf("0:%d", plan.Video.StreamIndex))
	if !plan.Audio.None {
		args = append(args, "-map", fmt.Sprintf("0:a:%d?", plan.Audio.StreamIndex))
	}

	// --- Video ---
	if vaapi {
		args = append(args, "-vf", "format=nv12,hwupload")
	}
	args = appendVideoCodec(args, plan)

	// --- Audio ---
	args = appendAudioCodec(args, plan)

	// --- Global stream flags ---
	args = append(args,
		"-max_muxing_queue_size", strconv.Itoa(rs.MuxQueueSize),
		"-map_metadata", "0",
	)

	// --- Post-input timestamp flag ---
	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}

	// --- Container opts ---
	if plan.Container == codec.MP4 {
		args = append(args, "-movflags", "+faststart")
	}

	// --- Output ---
	args = append(args, plan.WorkPath)

	return args
}

func usesVAAPI(plan *planner.FilePlan) bool {
	return !plan.Video.Copy && plan.Video.Hardware && plan.Video.Family == codec.HWVAAPI
}

// appendVideoCodec adds the codec-specific arguments for the video stream.
func appendVideoCodec(args []string, plan *planner.FilePlan) []string {
	v := plan.Video
	if v.Copy {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", v.Encoder)
		args = append(args, qualityArgs(v)...)
	}

	// Apple players only accept HEVC in MP4 when tagged hvc1.
	if plan.Container == codec.MP4 && v.Codec == codec.HEVC {
		args = append(args, "-tag:v", "hvc1")
	}
	return args
}

// qualityArgs maps the resolved quality onto the encoder's rate control.
func qualityArgs(v planner.VideoPlan) []string {
	q := v.Quality
	if v.Hardware {
		hq := strconv.Itoa(q.HWQuality)
		switch v.Family {
		case codec.HWVideoToolbox:
			return []string{"-q:v", hq}
		case codec.HWVAAPI:
			return []string{"-rc_mode", "CQP", "-qp", hq}
		case codec.HWNVENC:
			return []string{"-rc", "vbr", "-cq", hq, "-b:v", "0"}
		case codec.HWQSV:
			return []string{"-global_quality", hq}
		}
		return nil
	}

	crf := strconv.Itoa(q.CRF)
	switch v.Encoder {
	case "libx265":
		return []string{"-crf", crf, "-preset", q.Preset, "-x265-params", "log-level=error"}
	case "libx264":
		return []string{"-crf", crf, "-preset", q.Preset}
	case "libvpx-vp9":
		return []string{"-crf", crf, "-b:v", "0", "-row-mt", "1"}
	}
	return []string{"-crf", crf}
}

// appendAudioCodec adds audio codec arguments for the mapped stream.
func appendAudioCodec(args []string, plan *planner.FilePlan) []string {
	ap := plan.Audio
	switch {
	case ap.None:
		return append(args, "-an")
	case ap.Copy:
		return append(args, "-c:a", "copy")
	}
	return append(args,
		"-c:a", string(ap.Codec),
		"-ac", strconv.Itoa(ap.Channels),
		"-b:a", ap.Bitrate,
	)
}

// TrialArgs returns the arguments for a 0.1 s synthetic encode with encoder
// into the null muxer. device is only used for VAAPI encoders.
func TrialArgs(encoder string, family codec.HWFamily, device string) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if family == codec.HWVAAPI {
		args = append(args,
			"-init_hw_device", "vaapi=va:"+device,
			"-filter_hw_device", "va",
		)
	}
	args = append(args, "-f", "lavfi", "-i", "color=black:s=256x256:d=0.1")
	if family == codec.HWVAAPI {
		args = append(args, "-vf", "format=nv12,hwupload")
	}
	args = append(args, "-c:v", encoder, "-f", "null", "-")
	return args
}

// AudioTrialArgs returns the arguments for a short synthetic AAC encode.
func AudioTrialArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", "aac", "-ac", "2", "-f", "null", "-",
	}
}
