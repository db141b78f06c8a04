// Package logging provides the leveled console logger with optional plain
// text file and systemd journal sinks.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/fatih/color"

	"github.com/backmassage/vidcompress/internal/config"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelSuccess
	levelWarn
	levelError
)

func (lv level) tag() string {
	switch lv {
	case levelDebug:
		return "DEBUG"
	case levelSuccess:
		return "SUCCESS"
	case levelWarn:
		return "WARN"
	case levelError:
		return "ERROR"
	}
	return "INFO"
}

// priority maps a level to its journal priority.
func (lv level) priority() journal.Priority {
	switch lv {
	case levelDebug:
		return journal.PriDebug
	case levelSuccess:
		return journal.PriNotice
	case levelWarn:
		return journal.PriWarning
	case levelError:
		return journal.PriErr
	}
	return journal.PriInfo
}

// journalSend and journalEnabled are replaced in tests.
var (
	journalSend    = journal.Send
	journalEnabled = journal.Enabled
)

// Options configures a Logger. Zero writers default to os.Stdout/os.Stderr.
type Options struct {
	Verbose bool
	Color   config.ColorMode
	LogFile string
	Journal bool

	Stdout io.Writer
	Stderr io.Writer
}

// Logger provides leveled, optionally colored logging with optional file
// and journal sinks. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	verbose bool
	colored bool
	styles  map[level]*color.Color

	out    io.Writer
	errOut io.Writer
	file   *os.File

	journal bool
	now     func() time.Time
}

// NewLogger builds a Logger from the run configuration. Nil writers mean the
// terminal. Call Close when done if a log file was configured.
func NewLogger(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	return New(Options{
		Verbose: cfg.Verbose,
		Color:   cfg.ColorMode,
		LogFile: cfg.LogFile,
		Journal: cfg.Journal,
		Stdout:  stdout,
		Stderr:  stderr,
	})
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		verbose: opts.Verbose,
		out:     opts.Stdout,
		errOut:  opts.Stderr,
		now:     time.Now,
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if l.errOut == nil {
		l.errOut = os.Stderr
	}

	switch opts.Color {
	case config.ColorAlways:
		l.colored = true
	case config.ColorNever:
		l.colored = false
	default:
		// color.NoColor already accounts for NO_COLOR, TERM=dumb and a
		// non-terminal stdout.
		l.colored = !color.NoColor && opts.Stdout == nil
	}
	l.styles = map[level]*color.Color{
		levelDebug:   color.New(color.Bold, color.FgHiCyan),
		levelInfo:    color.New(color.Bold, color.FgHiBlue),
		levelSuccess: color.New(color.Bold, color.FgHiGreen),
		levelWarn:    color.New(color.Bold, color.FgHiYellow),
		levelError:   color.New(color.Bold, color.FgHiRed),
	}
	for _, c := range l.styles {
		if l.colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}

	if opts.Journal {
		l.journal = journalEnabled()
		if !l.journal {
			l.Warn("systemd journal not available; journal logging disabled")
		}
	}
	return l, nil
}

// Colored reports whether console output uses ANSI colors.
func (l *Logger) Colored() bool { return l.colored }

// Verbose reports whether debug lines are emitted.
func (l *Logger) Verbose() bool { return l.verbose }

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(lv level, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	tag := "[" + lv.tag() + "]"

	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.out
	if lv == levelError {
		out = l.errOut
	}
	_, _ = io.WriteString(out, ts+" "+l.styles[lv].Sprint(tag)+" "+text+"\n")
	if l.file != nil {
		_, _ = io.WriteString(l.file, ts+" "+tag+" "+text+"\n")
	}
	if l.journal {
		_ = journalSend(text, lv.priority(), map[string]string{
			"SYSLOG_IDENTIFIER": "vidcompress",
			"VIDCOMPRESS_LEVEL": lv.tag(),
		})
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line(levelInfo, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line(levelSuccess, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line(levelWarn, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line(levelError, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when the logger is verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line(levelDebug, fmt.Sprintf(format, args...))
}
