// Command vidcompress normalizes every video under a folder to one target
// codec and container, remuxing or re-encoding only what does not already
// conform.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/vidcompress/internal/check"
	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/display"
	"github.com/backmassage/vidcompress/internal/ffmpeg"
	"github.com/backmassage/vidcompress/internal/logging"
	"github.com/backmassage/vidcompress/internal/metrics"
	"github.com/backmassage/vidcompress/internal/pipeline"
	"github.com/backmassage/vidcompress/internal/probe"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(execute(ctx, os.Args[1:], nil, os.Stderr))
}

// execute runs the command line and maps the result to an exit status.
// A completed run is 0 even when individual files failed. A nil stdout means
// the terminal, which keeps automatic color detection working.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if stdout != nil {
		root.SetOut(stdout)
	}
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "vidcompress: %v\n", err)
		return 1
	}
	return 0
}

// app carries the configuration shared by every subcommand.
type app struct {
	cfg    config.Config
	stdout io.Writer // nil means os.Stdout
	stderr io.Writer
}

func (a *app) out() io.Writer {
	if a.stdout == nil {
		return os.Stdout
	}
	return a.stdout
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "vidcompress [flags] <folder>",
		Short: "Normalize a folder of videos to one codec and container",
		Long: `Walks <folder> recursively and converts every video to the target codec
and container. Files that already conform are skipped; files whose streams
only need a new container are remuxed; everything else is re-encoded.
Originals are removed after a successful conversion unless --keep-original
is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if err := a.cfg.ValidateFolder(args[0]); err != nil {
				return err
			}
			return a.runBatch(cmd.Context())
		},
	}
	config.RegisterFlags(root.PersistentFlags(), &a.cfg)

	root.AddCommand(
		&cobra.Command{
			Use:           "check",
			Short:         "Report ffmpeg, encoder and hardware availability",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.load(cmd); err != nil {
					return err
				}
				return a.runCheck(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "vidcompress %s (%s)\n", version, commit)
			},
		},
	)
	return root
}

// load layers the config file and environment under the parsed flags and
// validates the result. A --config given explicitly must exist.
func (a *app) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	required := flags.Changed(config.ConfigFlag)
	if err := config.ApplySources(flags, a.cfg.ConfigFile, required, os.Getenv); err != nil {
		return err
	}
	return a.cfg.Validate()
}

func (a *app) runBatch(ctx context.Context) error {
	cfg := &a.cfg

	// Only both tools missing is an invocation error. With one of them gone
	// the run goes ahead and the affected files fail individually.
	depErr := check.CheckDeps(cfg.FFmpegPath, cfg.FFprobePath)
	if errors.Is(depErr, check.ErrToolsNotFound) {
		return depErr
	}

	log, err := logging.NewLogger(cfg, a.stdout, a.stderr)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner(a.out(), log.Colored(), version)
	if depErr != nil {
		log.Error("%v: affected files will fail", depErr)
	}

	runner := ffmpeg.NewCommandRunner(cfg.FFmpegPath, cfg.TranscodeTimeout)
	hw := check.Detect(ctx, cfg, runner.WithTimeout(cfg.HWProbeTimeout), log)
	if cfg.ShowProgress {
		runner.Progress = os.Stderr
	}

	rc := pipeline.RunConfig{
		Config:      *cfg,
		HWFamily:    hw.Family,
		HWAccel:     hw.Available,
		VaapiDevice: hw.Device,
	}
	deps := pipeline.Deps{
		Inspector: probe.NewFFprobe(cfg.FFprobePath, cfg.ProbeTimeout),
		Runner:    runner,
		Log:       log,
		Metrics:   metrics.NewRecorder(),
	}

	stats := pipeline.Run(ctx, rc, deps)
	if errors.Is(ctx.Err(), context.Canceled) {
		log.Warn("Interrupted after %d files", stats.Processed)
	}
	return nil
}

func (a *app) runCheck(ctx context.Context) error {
	log, err := logging.NewLogger(&a.cfg, a.stdout, a.stderr)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner(a.out(), log.Colored(), version)
	runner := ffmpeg.NewCommandRunner(a.cfg.FFmpegPath, a.cfg.HWProbeTimeout)
	return check.RunCheck(ctx, &a.cfg, runner, log)
}
