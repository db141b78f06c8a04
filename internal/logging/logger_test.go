package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"

	"github.com/backmassage/vidcompress/internal/config"
)

func newTestLogger(t *testing.T, opts Options) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	l, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, &out, &errOut
}

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogFile = ""
	var out bytes.Buffer
	l, err := NewLogger(&cfg, &out, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.Verbose() {
		t.Error("default config should not be verbose")
	}
	if l.Colored() {
		t.Error("a non-terminal writer must not get colors in auto mode")
	}
	l.Debug("hidden")
	l.Info("shown")
	if got := out.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "shown") {
		t.Errorf("output: %q", got)
	}
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "vidcompress.log")
	l, _, _ := newTestLogger(t, Options{LogFile: path, Color: config.ColorAlways})
	l.Info("to file")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("[INFO] to file")) {
		t.Errorf("log file content: %s", string(b))
	}
	if bytes.Contains(b, []byte("\x1b[")) {
		t.Errorf("log file must be plain text: %q", string(b))
	}
}

func TestLogger_Levels(t *testing.T) {
	l, out, errOut := newTestLogger(t, Options{Color: config.ColorNever})
	l.Info("hello %d", 1)
	l.Success("done")
	l.Warn("careful")
	l.Error("broken")
	l.Debug("hidden")

	for _, want := range []string{"[INFO] hello 1", "[SUCCESS] done", "[WARN] careful"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "broken") {
		t.Error("errors must not go to stdout")
	}
	if !strings.Contains(errOut.String(), "[ERROR] broken") {
		t.Errorf("stderr: %q", errOut.String())
	}
	if strings.Contains(out.String(), "hidden") {
		t.Error("debug printed without verbose")
	}
}

func TestLogger_DebugVerbose(t *testing.T) {
	l, out, _ := newTestLogger(t, Options{Verbose: true, Color: config.ColorNever})
	l.Debug("details %s", "here")
	if !strings.Contains(out.String(), "[DEBUG] details here") {
		t.Errorf("stdout: %q", out.String())
	}
}

func TestLogger_Color(t *testing.T) {
	l, out, _ := newTestLogger(t, Options{Color: config.ColorAlways})
	if !l.Colored() {
		t.Fatal("ColorAlways should enable color")
	}
	l.Info("x")
	if !strings.Contains(out.String(), "\x1b[") {
		t.Errorf("expected ANSI escape, got %q", out.String())
	}

	l, out, _ = newTestLogger(t, Options{Color: config.ColorNever})
	l.Info("x")
	if l.Colored() || strings.Contains(out.String(), "\x1b[") {
		t.Errorf("ColorNever produced color: %q", out.String())
	}

	// Auto with an injected writer is never a terminal.
	l, _, _ = newTestLogger(t, Options{Color: config.ColorAuto})
	if l.Colored() {
		t.Error("auto color enabled for a non-terminal writer")
	}
}

type sent struct {
	msg  string
	pri  journal.Priority
	vars map[string]string
}

func stubJournal(t *testing.T, enabled bool) *[]sent {
	t.Helper()
	var got []sent
	oldSend, oldEnabled := journalSend, journalEnabled
	journalSend = func(msg string, pri journal.Priority, vars map[string]string) error {
		got = append(got, sent{msg, pri, vars})
		return nil
	}
	journalEnabled = func() bool { return enabled }
	t.Cleanup(func() { journalSend, journalEnabled = oldSend, oldEnabled })
	return &got
}

func TestLogger_Journal(t *testing.T) {
	got := stubJournal(t, true)
	l, _, _ := newTestLogger(t, Options{Journal: true, Color: config.ColorNever})
	l.Warn("low space")
	l.Error("failed")

	if len(*got) != 2 {
		t.Fatalf("sent %d entries, want 2", len(*got))
	}
	if (*got)[0].msg != "low space" || (*got)[0].pri != journal.PriWarning {
		t.Errorf("first entry: %+v", (*got)[0])
	}
	if (*got)[1].pri != journal.PriErr {
		t.Errorf("error priority: %v", (*got)[1].pri)
	}
	if (*got)[0].vars["SYSLOG_IDENTIFIER"] != "vidcompress" {
		t.Errorf("identifier: %v", (*got)[0].vars)
	}
}

func TestLogger_JournalUnavailable(t *testing.T) {
	got := stubJournal(t, false)
	l, out, _ := newTestLogger(t, Options{Journal: true, Color: config.ColorNever})
	l.Info("x")
	if len(*got) != 0 {
		t.Errorf("sent %d entries to an unavailable journal", len(*got))
	}
	if !strings.Contains(out.String(), "journal not available") {
		t.Errorf("expected warning, got %q", out.String())
	}
}
