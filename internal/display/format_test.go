package display

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical file 700 MiB", 734003200, "700.0 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatSizeDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int64
		want  string
	}{
		{"grew", 1024 * 1024, "+1.0 MiB"},
		{"shrank", -3 * 1024 * 1024 * 1024, "-3.0 GiB"},
		{"unchanged", 0, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSizeDelta(tt.delta); got != tt.want {
				t.Errorf("FormatSizeDelta(%d) = %q, want %q", tt.delta, got, tt.want)
			}
		})
	}
}

func TestFormatBitrateLabel(t *testing.T) {
	tests := []struct {
		name string
		kbps int64
		want string
	}{
		{"sub-megabit", 800, "800 kbps"},
		{"exactly 1 Mbps", 1000, "1.0 Mbps"},
		{"typical video", 5000, "5.0 Mbps"},
		{"high bitrate", 25000, "25.0 Mbps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBitrateLabel(tt.kbps)
			if got != tt.want {
				t.Errorf("FormatBitrateLabel(%d) = %q, want %q", tt.kbps, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1400 * time.Millisecond, "1s"},
		{65 * time.Second, "1m05s"},
		{3*time.Hour + 2*time.Minute + 9*time.Second, "3h02m09s"},
		{-5 * time.Second, "5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPrintBanner(t *testing.T) {
	var plain, colored bytes.Buffer
	PrintBanner(&plain, false, "v1.2.3")
	PrintBanner(&colored, true, "v1.2.3")

	if strings.Contains(plain.String(), "\x1b[") {
		t.Errorf("plain banner contains escapes: %q", plain.String())
	}
	if !strings.Contains(plain.String(), "v1.2.3") {
		t.Error("banner missing version")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Error("colored banner has no escapes")
	}
}
