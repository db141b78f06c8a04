package config

// This file registers CLI flags on a pflag.FlagSet.
// Flags are grouped into target, encoding, behavior, display, and tooling.
// Enum flags use pflag.Value adapters so invalid values fail during parsing.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/backmassage/vidcompress/internal/codec"
)

// ConfigFlag is the flag that names the optional TOML file. It is never
// read from the file itself.
const ConfigFlag = "config"

// RegisterFlags binds every setting in cfg to a flag on fs. Defaults are
// taken from cfg, so call it with the result of [DefaultConfig].
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	defineTargetFlags(fs, cfg)
	defineEncodingFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg)
	defineToolFlags(fs, cfg)
}

// defineTargetFlags registers --video-codec, --container, --keep-original.
func defineTargetFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Var(&videoCodecValue{&cfg.VideoCodec}, "video-codec", "Target video codec: h.265 | h.264 | vp9")
	fs.Var(&containerValue{&cfg.Container}, "container", "Target container: mkv | mp4")
	fs.BoolVarP(&cfg.KeepOriginal, "keep-original", "k", cfg.KeepOriginal, "Keep source files after successful conversion")
}

// defineEncodingFlags registers hardware selection and quality flags.
func defineEncodingFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Var(&hwAccelValue{&cfg.HWAccel}, "hwaccel", "Hardware encoder family: auto | none | videotoolbox | vaapi | nvenc | qsv")
	fs.StringVar(&cfg.VaapiDevice, "vaapi-device", cfg.VaapiDevice, "VAAPI render node")
	fs.IntVar(&cfg.CRF, "crf", cfg.CRF, "Software encoder CRF (-1 = codec default)")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Software encoder preset (x264/x265)")
	fs.IntVar(&cfg.HWQuality, "hw-quality", cfg.HWQuality, "Hardware encoder quality (0 = family default)")
	fs.StringVar(&cfg.AudioBitrate, "audio-bitrate", cfg.AudioBitrate, "AAC bitrate for re-encoded audio")
}

// defineBehaviorFlags registers dry-run, strict, watch and timeouts.
func defineBehaviorFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "Preview only; do not run ffmpeg or touch files")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Disable automatic ffmpeg retry fallbacks")
	fs.BoolVarP(&cfg.Watch, "watch", "w", cfg.Watch, "Keep running and process new files as they appear")
	fs.DurationVar(&cfg.Settle, "settle", cfg.Settle, "Watch mode: time a file must stay unchanged before processing")
	fs.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Timeout for each ffprobe call")
	fs.DurationVar(&cfg.TranscodeTimeout, "transcode-timeout", cfg.TranscodeTimeout, "Timeout for each ffmpeg call")
	fs.DurationVar(&cfg.HWProbeTimeout, "hwaccel-timeout", cfg.HWProbeTimeout, "Timeout for the startup hardware trial encode")
}

// defineDisplayFlags registers verbosity, color, log sinks and metrics.
func defineDisplayFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.ShowProgress, "progress", cfg.ShowProgress, "Show live ffmpeg progress")
	fs.Var(&colorModeValue{&cfg.ColorMode}, "color", "Colored logs: auto | always | never")
	fs.StringVarP(&cfg.LogFile, "log", "l", cfg.LogFile, "Append logs to file")
	fs.BoolVar(&cfg.Journal, "journal", cfg.Journal, "Also send logs to the systemd journal")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus textfile metrics to this path")
}

// defineToolFlags registers external tool paths and the config file.
func defineToolFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "ffprobe binary")
	fs.StringVarP(&cfg.ConfigFile, ConfigFlag, "c", cfg.ConfigFile, "TOML config file")
}

// pflag.Value adapters so we can use enum types with fs.Var.

type videoCodecValue struct{ p *codec.Video }

func (v *videoCodecValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.Label()
}
func (v *videoCodecValue) Type() string { return "codec" }
func (v *videoCodecValue) Set(s string) error {
	c, ok := codec.ParseVideo(s)
	if !ok {
		return fmt.Errorf("invalid video codec %q (use 'h.265', 'h.264' or 'vp9')", s)
	}
	*v.p = c
	return nil
}

type containerValue struct{ p *codec.Container }

func (c *containerValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}
func (c *containerValue) Type() string { return "container" }
func (c *containerValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "mkv":
		*c.p = codec.MKV
	case "mp4":
		*c.p = codec.MP4
	default:
		return fmt.Errorf("invalid container %q (use 'mkv' or 'mp4')", s)
	}
	return nil
}

type hwAccelValue struct{ p *HWAccelMode }

func (h *hwAccelValue) String() string {
	if h.p == nil {
		return ""
	}
	return string(*h.p)
}
func (h *hwAccelValue) Type() string { return "family" }
func (h *hwAccelValue) Set(s string) error {
	m := HWAccelMode(strings.ToLower(s))
	switch m {
	case HWAccelAuto, HWAccelNone, HWAccelVideoToolbox, HWAccelVAAPI, HWAccelNVENC, HWAccelQSV:
		*h.p = m
	default:
		return fmt.Errorf("invalid hwaccel %q (use auto, none, videotoolbox, vaapi, nvenc or qsv)", s)
	}
	return nil
}

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}
func (c *colorModeValue) Type() string { return "mode" }
func (c *colorModeValue) Set(s string) error {
	m := ColorMode(strings.ToLower(s))
	switch m {
	case ColorAuto, ColorAlways, ColorNever:
		*c.p = m
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
