// Package check provides the startup hardware capability trial, the
// pre-run dependency validation (CheckDeps) for ffmpeg and ffprobe, and the
// `vidcompress check` diagnostics flow.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/ffmpeg"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
// ErrToolsNotFound wraps both of the others.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
	ErrToolsNotFound   = errors.New("neither ffmpeg nor ffprobe is available")
)

// Runner executes one ffmpeg invocation. *ffmpeg.CommandRunner satisfies it.
type Runner interface {
	Run(ctx context.Context, args []string) ffmpeg.ExecResult
}

// Logger is the minimal logging interface needed by this package.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// renderDeviceGlob is a variable so tests can point it at a temp dir.
var renderDeviceGlob = "/dev/dri/renderD*"

// ResolveFamily maps the configured mode to a concrete encoder family for
// goos. auto picks videotoolbox on darwin, vaapi on linux when a render node
// exists, and nvenc otherwise.
func ResolveFamily(mode config.HWAccelMode, goos string) codec.HWFamily {
	switch mode {
	case config.HWAccelNone:
		return codec.HWNone
	case config.HWAccelVideoToolbox:
		return codec.HWVideoToolbox
	case config.HWAccelVAAPI:
		return codec.HWVAAPI
	case config.HWAccelNVENC:
		return codec.HWNVENC
	case config.HWAccelQSV:
		return codec.HWQSV
	}

	switch {
	case goos == "darwin":
		return codec.HWVideoToolbox
	case goos == "linux" && getFirstRenderDevice() != "":
		return codec.HWVAAPI
	}
	return codec.HWNVENC
}

// ResolveVAAPIDevice returns configured when it exists, otherwise the first
// render node on the system. configured is returned unchanged when there is
// no render node at all so the trial fails with a useful message.
func ResolveVAAPIDevice(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}
	if dev := getFirstRenderDevice(); dev != "" {
		return dev
	}
	return configured
}

// ProbeHWAccel runs a 0.1 s trial encode with the family's encoder for v.
// It reports true iff the encoder exists in the table and the trial exits 0.
func ProbeHWAccel(ctx context.Context, runner Runner, family codec.HWFamily, v codec.Video, device string) bool {
	ok, _ := probeHWAccel(ctx, runner, family, v, device)
	return ok
}

func probeHWAccel(ctx context.Context, runner Runner, family codec.HWFamily, v codec.Video, device string) (bool, string) {
	if family == codec.HWNone {
		return false, "hardware acceleration disabled"
	}
	enc, ok := codec.HardwareEncoder(v, family)
	if !ok {
		return false, "no " + string(family) + " encoder for " + v.Label()
	}
	res := runner.Run(ctx, ffmpeg.TrialArgs(enc, family, device))
	if err := res.Failure(); err != nil {
		return false, enc + ": " + err.Error()
	}
	return true, enc
}

// Capability is the result of the startup trial.
type Capability struct {
	Family    codec.HWFamily
	Device    string // VAAPI only.
	Encoder   string // Hardware encoder name; empty when unavailable.
	Available bool
}

// Detect resolves the family and device from cfg and runs the trial bounded
// by cfg.HWProbeTimeout. Failures are logged at debug level and never fatal.
func Detect(ctx context.Context, cfg *config.Config, runner Runner, log Logger) Capability {
	c := Capability{Family: ResolveFamily(cfg.HWAccel, runtime.GOOS)}
	if c.Family == codec.HWVAAPI {
		c.Device = ResolveVAAPIDevice(cfg.VaapiDevice)
	}
	if c.Family == codec.HWNone {
		log.Debug("Hardware acceleration disabled")
		return c
	}

	if cfg.HWProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HWProbeTimeout)
		defer cancel()
	}
	start := time.Now()
	ok, detail := probeHWAccel(ctx, runner, c.Family, cfg.VideoCodec, c.Device)
	if ok {
		c.Available = true
		c.Encoder = detail
		log.Debug("Hardware trial passed: %s (%s)", detail, time.Since(start).Round(time.Millisecond))
	} else {
		log.Debug("Hardware trial failed: %s", detail)
	}
	return c
}

// CheckDeps is the pre-run validation: it verifies that the ffmpeg and
// ffprobe binaries can be found. Names without a separator are looked up
// on PATH. Only ErrToolsNotFound stops a run; with a single tool missing the
// affected files fail one by one.
func CheckDeps(ffmpegPath, ffprobePath string) error {
	_, mpegErr := exec.LookPath(ffmpegPath)
	_, probeErr := exec.LookPath(ffprobePath)
	switch {
	case mpegErr != nil && probeErr != nil:
		return fmt.Errorf("%w (%w; %w)", ErrToolsNotFound, ErrFfmpegNotFound, ErrFfprobeNotFound)
	case mpegErr != nil:
		return ErrFfmpegNotFound
	case probeErr != nil:
		return ErrFfprobeNotFound
	}
	return nil
}

// commandOutput runs a tool and returns its stdout. Tests replace it.
var commandOutput = func(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).Output()
}

// RunCheck runs the `check` diagnostics: tool versions, encoders for the
// target codec, the hardware trial, a software trial, and an AAC trial.
// Only ErrToolsNotFound is returned; everything else is informational.
func RunCheck(ctx context.Context, cfg *config.Config, runner Runner, log Logger) error {
	log.Info("=== System Check ===")

	switch err := CheckDeps(cfg.FFmpegPath, cfg.FFprobePath); {
	case errors.Is(err, ErrToolsNotFound):
		log.Error("%v", err)
		return err
	case errors.Is(err, ErrFfmpegNotFound):
		log.Error("%v: no file can be converted", err)
		logVersion(ctx, log, "ffprobe", cfg.FFprobePath)
		return nil
	case errors.Is(err, ErrFfprobeNotFound):
		log.Error("%v: no file can be inspected", err)
		logVersion(ctx, log, "ffmpeg", cfg.FFmpegPath)
	default:
		logVersion(ctx, log, "ffmpeg", cfg.FFmpegPath)
		logVersion(ctx, log, "ffprobe", cfg.FFprobePath)
	}

	checkEncoders(ctx, cfg, log)

	hw := Detect(ctx, cfg, runner, log)
	switch {
	case hw.Family == codec.HWNone:
		log.Info("Hardware acceleration: disabled")
	case hw.Available:
		log.Success("Hardware encoder works: %s", hw.Encoder)
	default:
		log.Warn("Hardware encoder unavailable (%s); software encoding will be used", hw.Family)
	}

	sw := codec.SoftwareEncoder(cfg.VideoCodec)
	log.Info("Testing %s...", sw)
	if res := runner.Run(ctx, ffmpeg.TrialArgs(sw, codec.HWNone, "")); res.Err == nil {
		log.Success("%s works", sw)
	} else {
		log.Error("%s test encode failed", sw)
	}

	log.Info("Testing AAC encoder...")
	if res := runner.Run(ctx, ffmpeg.AudioTrialArgs()); res.Err == nil {
		log.Success("AAC encoder works")
	} else {
		log.Error("AAC encoder test failed")
	}
	return nil
}

// logVersion logs the first line of `<bin> -version`.
func logVersion(ctx context.Context, log Logger, name, bin string) {
	out, err := commandOutput(ctx, bin, "-version")
	if err != nil {
		log.Warn("%s found but -version failed: %v", name, err)
		return
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("%s: %s", name, firstLine)
}

// checkEncoders lists which table encoders for the target codec ffmpeg
// reports as compiled in.
func checkEncoders(ctx context.Context, cfg *config.Config, log Logger) {
	log.Info("%s encoders:", cfg.VideoCodec.Label())
	out, err := commandOutput(ctx, cfg.FFmpegPath, "-hide_banner", "-encoders")
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return
	}
	compiled := parseEncoderList(string(out))

	names := codec.Encoders()[cfg.VideoCodec]
	sort.Strings(names)
	for _, name := range names {
		if compiled[name] {
			log.Info("  %-20s available", name)
		} else {
			log.Info("  %-20s not compiled in", name)
		}
	}
}

// parseEncoderList extracts encoder names from `ffmpeg -encoders` output.
// Rows look like " V....D libx265   libx265 H.265 / HEVC".
func parseEncoderList(out string) map[string]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 || fields[1] == "=" {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

// --- internal helpers ---

// getFirstRenderDevice returns the first available /dev/dri/renderD* path,
// or empty string if none exist.
func getFirstRenderDevice() string {
	matches, _ := filepath.Glob(renderDeviceGlob)
	for _, m := range matches {
		if _, err := os.Stat(m); err == nil {
			return m
		}
	}
	return ""
}
