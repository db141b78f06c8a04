package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/vidcompress/internal/codec"
	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/display"
	"github.com/backmassage/vidcompress/internal/ffmpeg"
	"github.com/backmassage/vidcompress/internal/fsutil"
	"github.com/backmassage/vidcompress/internal/logging"
	"github.com/backmassage/vidcompress/internal/metrics"
	"github.com/backmassage/vidcompress/internal/planner"
	"github.com/backmassage/vidcompress/internal/probe"
)

// Inspector reduces a media file to its profile. *probe.FFprobe satisfies it.
type Inspector interface {
	Inspect(ctx context.Context, path string) (probe.MediaProfile, error)
}

// Runner executes one ffmpeg invocation. *ffmpeg.CommandRunner satisfies it.
type Runner interface {
	Run(ctx context.Context, args []string) ffmpeg.ExecResult
}

// RunConfig is the immutable input of a run: the validated configuration
// plus the result of the startup capability trial.
type RunConfig struct {
	Config      config.Config
	HWFamily    codec.HWFamily
	HWAccel     bool   // The trial succeeded for HWFamily.
	VaapiDevice string // Resolved render node, VAAPI only.
}

// Deps are the run's collaborators.
type Deps struct {
	Inspector Inspector
	Runner    Runner
	Log       *logging.Logger
	Metrics   *metrics.Recorder // Optional.
}

// processor holds the state shared by the initial pass and watch mode.
type processor struct {
	cfg      *config.Config
	opts     planner.Options
	deps     Deps
	exec     *Executor
	resolver *planner.CollisionResolver
	stats    RunStats

	// done maps every path we processed or produced to its modification
	// time at that moment, so watch mode does not revisit it.
	done map[string]time.Time
}

func newProcessor(rc RunConfig, deps Deps) *processor {
	cfg := rc.Config
	device := rc.VaapiDevice
	if device == "" {
		device = cfg.VaapiDevice
	}
	return &processor{
		cfg:  &cfg,
		opts: planner.OptionsFromConfig(&cfg, rc.HWFamily, rc.HWAccel),
		deps: deps,
		exec: &Executor{
			Runner: deps.Runner,
			Log:    deps.Log,
			Build: ffmpeg.BuildOptions{
				Verbose:      cfg.Verbose,
				ShowProgress: cfg.ShowProgress,
				VaapiDevice:  device,
			},
			Strict: cfg.Strict,
			DryRun: cfg.DryRun,
			CRF:    cfg.CRF,
			Preset: cfg.Preset,
		},
		resolver: planner.NewCollisionResolver(),
		done:     make(map[string]time.Time),
	}
}

// Run is the top-level batch entry point. It discovers files under the
// configured folder, processes each one sequentially, optionally keeps
// watching for new files, and returns aggregate stats. Per-file failures are
// recorded and never stop the run.
func Run(ctx context.Context, rc RunConfig, deps Deps) RunStats {
	p := newProcessor(rc, deps)
	log := deps.Log

	deps.Metrics.SetHWAccel(rc.HWAccel)

	files, err := Discover(p.cfg.Folder, p.warnUnreadable)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return p.stats
	}
	for _, f := range files {
		p.resolver.Claim(f)
	}

	p.logBatchHeader(rc, len(files))

	for i, path := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		p.processFile(ctx, path, i+1, len(files))
	}

	if p.cfg.Watch && ctx.Err() == nil {
		if err := p.watch(ctx); err != nil {
			log.Error("Watch mode failed: %v", err)
		}
	}

	p.logSummary()
	deps.Metrics.MarkRunComplete(time.Now())
	if err := deps.Metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
		log.Warn("Could not write metrics: %v", err)
	}
	return p.stats
}

// processFile handles one media file: inspect → classify → sibling check →
// resolve collisions → execute, then records the outcome.
func (p *processor) processFile(ctx context.Context, path string, n, total int) Outcome {
	log := p.deps.Log
	if total > 0 {
		log.Info("[%d/%d] %s", n, total, filepath.Base(path))
	} else {
		log.Info("[watch] %s", filepath.Base(path))
	}

	o := p.handle(ctx, path)

	switch {
	case !o.Success:
		log.Error("Failed: %v", o.Err)
	case o.Action == planner.ActionSkip:
		log.Success("Skip (%s)", o.Note)
	case o.DryRun:
	default:
		ratio := int64(100)
		if o.InputBytes > 0 {
			ratio = o.OutputBytes * 100 / o.InputBytes
		}
		log.Success("%s in %s (%d%% of original)", actionLabel(o.Action), display.FormatDuration(o.Elapsed), ratio)
	}

	p.stats.Record(o)
	if !o.DryRun {
		p.deps.Metrics.ObserveFile(o.MetricLabel(), o.Success, o.InputBytes, o.OutputBytes, o.Elapsed)
	}
	p.markDone(path)
	if o.Success && o.OutputPath != "" {
		p.markDone(o.OutputPath)
	}
	return o
}

func (p *processor) handle(ctx context.Context, path string) Outcome {
	o := Outcome{Path: path}

	fi, err := os.Stat(path)
	if err != nil {
		o.Err = err
		return o
	}
	o.InputBytes = fi.Size()

	profile, err := p.deps.Inspector.Inspect(ctx, path)
	if err != nil {
		o.Err = err
		return o
	}
	p.deps.Log.Info("  Source: %s", profile)
	if profile.Resolution != "" && profile.Resolution != "unknown" {
		p.deps.Log.Debug("  Video: %s | %s", profile.Resolution, display.FormatBitrateLabel(profile.VideoBitRate/1000))
	}

	plan := planner.BuildPlan(profile, p.opts)
	o.Action = plan.Action
	o.Classified = true

	if plan.Action == planner.ActionSkip {
		o.Success = true
		o.Note = "already conforms"
		return o
	}

	// --- Existing normalized sibling ---
	if note, ok := p.conformingSibling(ctx, plan); ok {
		o.Action = planner.ActionSkip
		o.Success = true
		o.Note = note
		return o
	}

	// --- Collisions ---
	if resolved := p.resolver.Resolve(path, plan.OutputPath); resolved != plan.OutputPath {
		p.deps.Log.Warn("  Output name taken, using %s", filepath.Base(resolved))
		plan.SetOutput(resolved)
	}
	o.OutputPath = plan.OutputPath

	p.deps.Log.Info("  Plan: %s (%s), %s", plan.Action, plan.Reason, describeVideo(plan))
	p.deps.Log.Info("  -> %s", filepath.Base(plan.OutputPath))

	start := time.Now()
	res := p.exec.Execute(ctx, plan)
	o.Elapsed = time.Since(start)
	o.Success = res.Success
	o.Err = res.Err
	o.OutputBytes = res.OutputBytes
	o.DryRun = p.cfg.DryRun
	if res.Software {
		o.Note = "software fallback"
	}
	return o
}

// conformingSibling reports whether a converted copy of the input already
// sits next to it and conforms to the target. Both the plain output name and
// the keep-original name are checked, so a run without --keep-original still
// recognizes copies made by an earlier run with it. The input is then left
// alone. Outputs written earlier in this run by another input do not count;
// those are collisions.
func (p *processor) conformingSibling(ctx context.Context, plan *planner.FilePlan) (string, bool) {
	kept := planner.OutputPath(plan.InputPath, plan.Action, p.opts.Target.Container, true)
	candidates := []string{plan.OutputPath}
	if kept != plan.OutputPath {
		candidates = append(candidates, kept)
	}
	for _, out := range candidates {
		if p.siblingConforms(ctx, plan.InputPath, out) {
			return "normalized copy exists: " + filepath.Base(out), true
		}
	}
	return "", false
}

func (p *processor) siblingConforms(ctx context.Context, input, out string) bool {
	if out == input {
		return false
	}
	if owner, ok := p.resolver.Owner(out); ok && owner != out {
		return false
	}
	if _, err := os.Stat(out); err != nil {
		return false
	}
	if fsutil.SameFile(input, out) {
		return false
	}
	sib, err := p.deps.Inspector.Inspect(ctx, out)
	if err != nil {
		p.deps.Log.Debug("  Existing %s could not be inspected: %v", filepath.Base(out), err)
		return false
	}
	return planner.Conforms(sib, p.opts.Target)
}

func (p *processor) warnUnreadable(path string, err error) {
	p.deps.Log.Warn("Skipping unreadable %s: %v", path, err)
}

func (p *processor) markDone(path string) {
	if fi, err := os.Stat(path); err == nil {
		p.done[path] = fi.ModTime()
	} else {
		delete(p.done, path)
	}
}

func actionLabel(a planner.Action) string {
	switch a {
	case planner.ActionRemux:
		return "Remuxed"
	case planner.ActionAudioReencode:
		return "Audio re-encoded"
	case planner.ActionTranscode:
		return "Transcoded"
	}
	return "Skipped"
}

// --- Logging helpers ---

func (p *processor) logBatchHeader(rc RunConfig, found int) {
	log := p.deps.Log
	t := p.opts.Target
	log.Info("Found %d files in %s", found, p.cfg.Folder)
	log.Info("Target: %s video, %s audio %dch, %s container",
		t.VideoCodec.Label(), t.AudioCodec, t.AudioChannels, t.Container)

	enc, hw := codec.Encoder(t.VideoCodec, rc.HWFamily, rc.HWAccel)
	if hw {
		log.Info("Encoder: %s (hardware)", enc)
	} else {
		log.Info("Encoder: %s (software)", enc)
	}
	if p.cfg.KeepOriginal {
		log.Info("Originals: kept (outputs get %s / %s suffixes)", planner.SuffixRemuxed, planner.SuffixReencoded)
	} else {
		log.Info("Originals: deleted after a successful conversion")
	}
	if p.cfg.Strict {
		log.Info("Retry policy: Strict mode (no auto-retry)")
	}
	if p.cfg.DryRun {
		log.Warn("Dry run: no files will be changed")
	}
}

func (p *processor) logSummary() {
	log := p.deps.Log
	s := &p.stats
	log.Info("==============================")
	log.Info("Done: %d transcoded, %d remuxed, %d audio re-encoded, %d skipped, %d failed",
		s.Transcoded, s.Remuxed, s.AudioReencoded, s.Skipped, s.Failed)
	log.Info("  Total files processed: %d", s.Processed)

	switch {
	case p.cfg.DryRun:
		log.Info("  Size change: n/a (dry run)")
	case s.Converted() == 0:
	default:
		logf := log.Success
		if s.SpaceSaved() < 0 {
			logf = log.Warn
		}
		logf("  Size change: %s (input %s -> output %s)",
			display.FormatSizeDelta(s.TotalOutputBytes-s.TotalInputBytes),
			display.FormatBytes(s.TotalInputBytes),
			display.FormatBytes(s.TotalOutputBytes))
	}

	if len(s.Failures) > 0 {
		log.Error("Failed files:")
		for _, f := range s.Failures {
			log.Error("  %s: %s", f.Path, failureReason(f.Reason))
		}
	}
}

// failureReason keeps summary lines short for wrapped inspection errors.
func failureReason(reason string) string {
	const limit = 200
	if len(reason) > limit {
		return reason[:limit] + "..."
	}
	return reason
}
