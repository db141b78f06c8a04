package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/planner"
)

func remuxPlan() *planner.FilePlan {
	return &planner.FilePlan{
		Action:     planner.ActionRemux,
		InputPath:  "/in/movie.mkv",
		OutputPath: "/in/movie.mp4",
		WorkPath:   "/in/.movie.vidcompress-tmp.mp4",
		Container:  codec.MP4,
		Video:      planner.VideoPlan{StreamIndex: 0, Copy: true, Codec: codec.H264},
		Audio:      planner.AudioPlan{Copy: true, Codec: codec.AAC, Channels: 2},
	}
}

func transcodePlan() *planner.FilePlan {
	return &planner.FilePlan{
		Action:     planner.ActionTranscode,
		InputPath:  "/in/clip.avi",
		OutputPath: "/in/clip_re-encoded.mkv",
		WorkPath:   "/in/.clip_re-encoded.vidcompress-tmp.mkv",
		Container:  codec.MKV,
		Video: planner.VideoPlan{
			StreamIndex: 1,
			Codec:       codec.HEVC,
			Encoder:     "libx265",
			Family:      codec.HWNone,
			Quality:     planner.Quality{CRF: 28, Preset: "medium"},
		},
		Audio: planner.AudioPlan{StreamIndex: 0, Codec: codec.AAC, Channels: 2, Bitrate: "192k"},
	}
}

// containsSeq reports whether want appears as a contiguous run in args.
func containsSeq(args []string, want ...string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		match := true
		for j := range want {
			if args[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func TestBuild_Remux(t *testing.T) {
	args := Build(remuxPlan(), BuildOptions{}, NewRetryState())

	assert.True(t, containsSeq(args, "-i", "/in/movie.mkv"))
	assert.True(t, containsSeq(args, "-map", "0:0"))
	assert.True(t, containsSeq(args, "-map", "0:a:0?"))
	assert.True(t, containsSeq(args, "-c:v", "copy"))
	assert.True(t, containsSeq(args, "-c:a", "copy"))
	assert.True(t, containsSeq(args, "-movflags", "+faststart"))
	assert.True(t, containsSeq(args, "-loglevel", "error"))
	assert.Contains(t, args, "-nostats")
	assert.NotContains(t, args, "-tag:v", "h264 needs no hvc1 tag")
	assert.NotContains(t, args, "-fflags")
	assert.Equal(t, "/in/.movie.vidcompress-tmp.mp4", args[len(args)-1])
}

func TestBuild_TranscodeSoftware(t *testing.T) {
	args := Build(transcodePlan(), BuildOptions{}, NewRetryState())

	assert.True(t, containsSeq(args, "-map", "0:1"))
	assert.True(t, containsSeq(args, "-c:v", "libx265", "-crf", "28", "-preset", "medium"))
	assert.True(t, containsSeq(args, "-x265-params", "log-level=error"))
	assert.True(t, containsSeq(args, "-c:a", "aac", "-ac", "2", "-b:a", "192k"))
	assert.True(t, containsSeq(args, "-max_muxing_queue_size", "4096"))
	assert.NotContains(t, args, "-movflags", "mkv output has no faststart")
	assert.NotContains(t, args, "-tag:v", "hvc1 tag is mp4 only")
	assert.NotContains(t, args, "-init_hw_device")
}

func TestBuild_HEVCInMP4Tagged(t *testing.T) {
	for _, copyVideo := range []bool{true, false} {
		plan := transcodePlan()
		plan.Container = codec.MP4
		plan.Video.Copy = copyVideo
		args := Build(plan, BuildOptions{}, NewRetryState())
		assert.True(t, containsSeq(args, "-tag:v", "hvc1"), "copy=%v", copyVideo)
	}
}

func TestBuild_AudioReencodeCopiesVideo(t *testing.T) {
	plan := remuxPlan()
	plan.Action = planner.ActionAudioReencode
	plan.Audio = planner.AudioPlan{StreamIndex: 2, Codec: codec.AAC, Channels: 2, Bitrate: "160k"}

	args := Build(plan, BuildOptions{}, NewRetryState())
	assert.True(t, containsSeq(args, "-c:v", "copy"))
	assert.True(t, containsSeq(args, "-map", "0:a:2?"))
	assert.True(t, containsSeq(args, "-c:a", "aac", "-ac", "2", "-b:a", "160k"))
}

func TestBuild_NoAudio(t *testing.T) {
	plan := transcodePlan()
	plan.Audio = planner.AudioPlan{None: true}

	args := Build(plan, BuildOptions{}, NewRetryState())
	assert.Contains(t, args, "-an")
	assert.NotContains(t, args, "-c:a")
	for i, a := range args {
		if a == "-map" {
			assert.False(t, strings.HasPrefix(args[i+1], "0:a:"), "unexpected audio map %q", args[i+1])
		}
	}
}

func TestBuild_VAAPI(t *testing.T) {
	plan := transcodePlan()
	plan.Video.Encoder = "hevc_vaapi"
	plan.Video.Hardware = true
	plan.Video.Family = codec.HWVAAPI
	plan.Video.Quality = planner.Quality{HWQuality: 24}

	args := Build(plan, BuildOptions{VaapiDevice: "/dev/dri/renderD128"}, NewRetryState())

	assert.True(t, containsSeq(args, "-init_hw_device", "vaapi=va:/dev/dri/renderD128", "-filter_hw_device", "va"))
	assert.Less(t, indexOf(args, "-init_hw_device"), indexOf(args, "-i"), "device init must precede input")
	assert.True(t, containsSeq(args, "-vf", "format=nv12,hwupload"))
	assert.True(t, containsSeq(args, "-c:v", "hevc_vaapi", "-rc_mode", "CQP", "-qp", "24"))
	assert.NotContains(t, args, "-crf")
}

func TestBuild_HardwareQualityFlags(t *testing.T) {
	tests := []struct {
		family codec.HWFamily
		enc    string
		want   []string
	}{
		{codec.HWVideoToolbox, "hevc_videotoolbox", []string{"-q:v", "65"}},
		{codec.HWNVENC, "hevc_nvenc", []string{"-rc", "vbr", "-cq", "65"}},
		{codec.HWQSV, "hevc_qsv", []string{"-global_quality", "65"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			plan := transcodePlan()
			plan.Video.Encoder = tt.enc
			plan.Video.Hardware = true
			plan.Video.Family = tt.family
			plan.Video.Quality = planner.Quality{HWQuality: 65}

			args := Build(plan, BuildOptions{}, NewRetryState())
			assert.True(t, containsSeq(args, tt.want...), "args: %v", args)
			assert.NotContains(t, args, "-init_hw_device")
		})
	}
}

func TestBuild_SoftwareQualityFlags(t *testing.T) {
	plan := transcodePlan()
	plan.Video.Codec = codec.VP9
	plan.Video.Encoder = "libvpx-vp9"
	plan.Video.Quality = planner.Quality{CRF: 31}
	args := Build(plan, BuildOptions{}, NewRetryState())
	assert.True(t, containsSeq(args, "-c:v", "libvpx-vp9", "-crf", "31", "-b:v", "0", "-row-mt", "1"))

	plan.Video.Codec = codec.H264
	plan.Video.Encoder = "libx264"
	plan.Video.Quality = planner.Quality{CRF: 23, Preset: "slow"}
	args = Build(plan, BuildOptions{}, NewRetryState())
	assert.True(t, containsSeq(args, "-c:v", "libx264", "-crf", "23", "-preset", "slow"))
	assert.NotContains(t, args, "-x265-params")
}

func TestBuild_VerboseAndProgress(t *testing.T) {
	args := Build(remuxPlan(), BuildOptions{Verbose: true}, NewRetryState())
	assert.True(t, containsSeq(args, "-loglevel", "info"))
	assert.Contains(t, args, "-stats")

	args = Build(remuxPlan(), BuildOptions{ShowProgress: true}, NewRetryState())
	assert.True(t, containsSeq(args, "-loglevel", "error"))
	assert.Contains(t, args, "-stats")
}

func TestBuild_RetryStateApplied(t *testing.T) {
	rs := NewRetryState()
	rs.MuxQueueSize = 16384
	rs.TimestampFix = true

	args := Build(remuxPlan(), BuildOptions{}, rs)
	assert.True(t, containsSeq(args, "-max_muxing_queue_size", "16384"))
	assert.True(t, containsSeq(args, "-fflags", "+genpts"))
	assert.Less(t, indexOf(args, "-fflags"), indexOf(args, "-i"), "+genpts is an input option")
	assert.True(t, containsSeq(args, "-avoid_negative_ts", "make_zero"))
}

func TestTrialArgs(t *testing.T) {
	args := TrialArgs("hevc_vaapi", codec.HWVAAPI, "/dev/dri/renderD129")
	assert.True(t, containsSeq(args, "-init_hw_device", "vaapi=va:/dev/dri/renderD129"))
	assert.True(t, containsSeq(args, "-f", "lavfi", "-i", "color=black:s=256x256:d=0.1"))
	assert.True(t, containsSeq(args, "-c:v", "hevc_vaapi", "-f", "null", "-"))

	args = TrialArgs("h264_nvenc", codec.HWNVENC, "")
	assert.NotContains(t, args, "-init_hw_device")
	assert.NotContains(t, args, "-vf")
	assert.True(t, containsSeq(args, "-c:v", "h264_nvenc"))

	assert.True(t, containsSeq(AudioTrialArgs(), "-c:a", "aac"))
}

// --- Retry ---

func TestAdvance_Order(t *testing.T) {
	const mux = "Too many packets buffered for output stream 0:1."
	const ts = "Application provided invalid, non monotonically increasing dts to muxer"

	rs := NewRetryState()
	require.Equal(t, RetryIncreaseMux, rs.Advance(mux+"\n"+ts, false))
	assert.Equal(t, 16384, rs.MuxQueueSize)

	// Mux already escalated, so the timestamp fix is next.
	require.Equal(t, RetryFixTimestamps, rs.Advance(mux+"\n"+ts, false))
	assert.True(t, rs.TimestampFix)

	// Nothing left to apply.
	assert.Equal(t, RetryNone, rs.Advance(mux+"\n"+ts, false))
}

func TestAdvance_HardwareFirst(t *testing.T) {
	rs := NewRetryState()
	stderr := "[hevc_vaapi @ 0x55] Failed to initialise VAAPI connection: -1 (unknown libva error).\n" +
		"Too many packets buffered for output stream 0:0."
	assert.Equal(t, RetrySoftware, rs.Advance(stderr, true))
	assert.Equal(t, 4096, rs.MuxQueueSize, "hardware fallback applies alone")
}

func TestAdvance_HardwareLastResort(t *testing.T) {
	rs := NewRetryState()
	assert.Equal(t, RetrySoftware, rs.Advance("Conversion failed!", true))

	rs = NewRetryState()
	assert.Equal(t, RetryNone, rs.Advance("Conversion failed!", false))
}

func TestAdvance_HardwareMessageIgnoredForSoftware(t *testing.T) {
	rs := NewRetryState()
	assert.Equal(t, RetryNone, rs.Advance("Error while opening encoder for output stream", false))
}

func TestAdvance_AttemptLimit(t *testing.T) {
	rs := NewRetryState()
	rs.Attempt = rs.MaxAttempts - 1
	assert.Equal(t, RetryNone, rs.Advance("Too many packets buffered for output stream 0:1.", false))
	assert.Equal(t, 4096, rs.MuxQueueSize)
}

func TestMatchers(t *testing.T) {
	assert.True(t, MatchHWEncoderFailure("[h264_nvenc @ 0x1] OpenEncodeSessionEx failed: out of memory (10)"))
	assert.True(t, MatchHWEncoderFailure("[hevc_qsv @ 0x1] Error creating a MFX session: -9."))
	assert.True(t, MatchHWEncoderFailure("No VA display found for device /dev/dri/renderD128."))
	assert.False(t, MatchHWEncoderFailure("frame= 100 fps= 25"))

	assert.True(t, MatchTimestampIssue("Non-monotonous DTS in output stream 0:1"))
	assert.True(t, MatchTimestampIssue("pts has no value"))
	assert.False(t, MatchTimestampIssue("Invalid data found when processing input"))

	assert.True(t, MatchMuxQueueOverflow("Too many packets buffered for output stream 0:1."))
}

func TestRetryActionString(t *testing.T) {
	assert.Equal(t, "none", RetryNone.String())
	assert.Equal(t, "fall back to software encoder", RetrySoftware.String())
	assert.Equal(t, "increase mux queue", RetryIncreaseMux.String())
	assert.Equal(t, "fix timestamps", RetryFixTimestamps.String())
}

// --- Errors ---

func TestStderrTail(t *testing.T) {
	assert.Nil(t, StderrTail("  \n ", 5))
	assert.Equal(t, []string{"c", "d"}, StderrTail("a\n\nb\r\nc\n\nd\n", 2))
	assert.Equal(t, []string{"a", "b"}, StderrTail("a\nb", 10))
}

func TestExecError(t *testing.T) {
	base := errors.New("exit status 1")
	res := ExecResult{Stderr: "line one\nConversion failed!\n", Err: base}
	err := res.Failure()
	require.Error(t, err)

	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, []string{"line one", "Conversion failed!"}, ee.Tail)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "ffmpeg: exit status 1: Conversion failed!", err.Error())

	assert.NoError(t, ExecResult{}.Failure())
	assert.Equal(t, "ffmpeg: boom", (&ExecError{Err: errors.New("boom")}).Error())
}

// --- Runner ---

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandRunner_CapturesStderr(t *testing.T) {
	bin := writeScript(t, `echo "warming up" >&2; echo "args: $*" >&2; exit 0`)
	var progress strings.Builder
	r := NewCommandRunner(bin, time.Minute)
	r.Progress = &progress

	res := r.Run(context.Background(), []string{"-i", "x"})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stderr, "args: -i x")
	assert.Equal(t, res.Stderr, progress.String())
}

func TestCommandRunner_Failure(t *testing.T) {
	bin := writeScript(t, `echo "Conversion failed!" >&2; exit 1`)
	res := NewCommandRunner(bin, time.Minute).Run(context.Background(), nil)
	require.Error(t, res.Err)

	var ee *ExecError
	require.ErrorAs(t, res.Failure(), &ee)
	assert.Equal(t, []string{"Conversion failed!"}, ee.Tail)
}

func TestCommandRunner_Timeout(t *testing.T) {
	bin := writeScript(t, `exec sleep 5`)
	r := NewCommandRunner(bin, time.Minute).WithTimeout(100 * time.Millisecond)

	start := time.Now()
	res := r.Run(context.Background(), nil)
	assert.ErrorIs(t, res.Err, ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandRunner_MissingBinary(t *testing.T) {
	res := NewCommandRunner(filepath.Join(t.TempDir(), "nope"), 0).Run(context.Background(), nil)
	assert.Error(t, res.Err)
	assert.NotErrorIs(t, res.Err, ErrTimeout)
}
