// Package config holds runtime configuration: defaults, CLI flag
// registration, config file and environment overrides, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/backmassage/vidcompress/internal/codec"
)

// --- Enum types for validated string fields ---

// HWAccelMode selects how the hardware encoder family is chosen.
type HWAccelMode string

const (
	HWAccelAuto         HWAccelMode = "auto" // Pick the platform's family (default).
	HWAccelNone         HWAccelMode = "none" // Always use software encoders.
	HWAccelVideoToolbox HWAccelMode = "videotoolbox"
	HWAccelVAAPI        HWAccelMode = "vaapi"
	HWAccelNVENC        HWAccelMode = "nvenc"
	HWAccelQSV          HWAccelMode = "qsv"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Target audio is fixed; it is never configurable per file or per run.
const (
	TargetAudioCodec    = codec.AAC
	TargetAudioChannels = 2
)

// TargetProfile is the normalization target for a run. It is built once from
// the validated Config and never changes afterwards.
type TargetProfile struct {
	VideoCodec    codec.Video
	Container     codec.Container
	AudioCodec    codec.Audio
	AudioChannels int
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by flags registered with [RegisterFlags], then by [ApplySources].
type Config struct {
	// Positional argument.
	Folder string

	// Target profile.
	VideoCodec   codec.Video     // Default: hevc.
	Container    codec.Container // Default: mp4.
	KeepOriginal bool

	// Encoder settings.
	HWAccel      HWAccelMode // Default: auto.
	VaapiDevice  string      // Default: "/dev/dri/renderD128".
	CRF          int         // -1 selects the codec default.
	Preset       string      // Software encoder preset. Default: "medium".
	HWQuality    int         // 0 selects the family default.
	AudioBitrate string      // Default: "192k".

	// Behavior.
	DryRun           bool
	Strict           bool // Disable retry fallbacks.
	Watch            bool
	Settle           time.Duration // Default: 5s. Watch mode quiet period.
	ProbeTimeout     time.Duration // Default: 2m.
	TranscodeTimeout time.Duration // Default: 12h.
	HWProbeTimeout   time.Duration // Default: 20s.

	// Display and logging.
	Verbose      bool
	ShowProgress bool
	ColorMode    ColorMode // Default: "auto".
	LogFile      string
	Journal      bool
	MetricsFile  string

	// External tools.
	FFmpegPath  string // Default: "ffmpeg".
	FFprobePath string // Default: "ffprobe".

	// Optional TOML file.
	ConfigFile string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		VideoCodec:       codec.HEVC,
		Container:        codec.MP4,
		HWAccel:          HWAccelAuto,
		VaapiDevice:      "/dev/dri/renderD128",
		CRF:              -1,
		Preset:           "medium",
		AudioBitrate:     "192k",
		Settle:           5 * time.Second,
		ProbeTimeout:     2 * time.Minute,
		TranscodeTimeout: 12 * time.Hour,
		HWProbeTimeout:   20 * time.Second,
		ColorMode:        ColorAuto,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
	}
}

// Target returns the run's TargetProfile.
func (c *Config) Target() TargetProfile {
	return TargetProfile{
		VideoCodec:    c.VideoCodec,
		Container:     c.Container,
		AudioCodec:    TargetAudioCodec,
		AudioChannels: TargetAudioChannels,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges and canonicalizes the audio
// bitrate. It does not look at the folder; see [ValidateFolder].
func (c *Config) Validate() error {
	switch c.VideoCodec {
	case codec.HEVC, codec.H264, codec.VP9:
	default:
		return fmt.Errorf("invalid video codec %q (use 'h.265', 'h.264' or 'vp9')", c.VideoCodec)
	}

	switch c.Container {
	case codec.MKV, codec.MP4:
	default:
		return fmt.Errorf("invalid container %q (use 'mkv' or 'mp4')", c.Container)
	}

	switch c.HWAccel {
	case HWAccelAuto, HWAccelNone, HWAccelVideoToolbox, HWAccelVAAPI, HWAccelNVENC, HWAccelQSV:
	default:
		return fmt.Errorf("invalid hwaccel %q", c.HWAccel)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if maxCRF := codec.MaxCRF(c.VideoCodec); c.CRF < -1 || c.CRF > maxCRF {
		return fmt.Errorf("crf for %s must be between 0 and %d (got %d)", c.VideoCodec.Label(), maxCRF, c.CRF)
	}
	if c.HWQuality < 0 || c.HWQuality > 100 {
		return fmt.Errorf("hw-quality must be between 1 and 100 (got %d)", c.HWQuality)
	}
	if c.ProbeTimeout <= 0 || c.TranscodeTimeout <= 0 || c.HWProbeTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Watch && c.Settle <= 0 {
		return errors.New("settle must be positive in watch mode")
	}

	normalizedBitrate, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalizedBitrate
	return nil
}

// ValidateFolder stores the normalized folder argument and requires that it
// names an existing directory.
func (c *Config) ValidateFolder(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return errors.New("folder argument is required")
	}
	path := NormalizeDirArg(arg)
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("folder %q: %w", arg, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%q is not a directory", arg)
	}
	c.Folder = path
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "256", "256k", "256K", "256kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 128k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}
