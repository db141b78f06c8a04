// Package metrics records per-run Prometheus metrics and writes them in the
// node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidcompress"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder holds the run's collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	files        *prometheus.CounterVec
	inputBytes   prometheus.Counter
	outputBytes  prometheus.Counter
	fileDuration *prometheus.HistogramVec
	hwAccel      prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed, by action and result",
		}, []string{"action", "result"}),
		inputBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "Size of inputs that were successfully converted",
		}),
		outputBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Size of outputs produced",
		}),
		fileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall time spent per converted file",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9), // 1s .. ~18h
		}, []string{"action"}),
		hwAccel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hwaccel_available",
			Help:      "1 if the hardware encoder trial succeeded",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pass finished",
		}),
	}
}

// ObserveFile records one processed file. Byte counters and the duration
// histogram are only updated for successful conversions.
func (r *Recorder) ObserveFile(action string, success bool, inBytes, outBytes int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	r.files.WithLabelValues(action, result).Inc()
	if !success || action == "skip" {
		return
	}
	if inBytes > 0 {
		r.inputBytes.Add(float64(inBytes))
	}
	if outBytes > 0 {
		r.outputBytes.Add(float64(outBytes))
	}
	r.fileDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// SetHWAccel records the capability trial result.
func (r *Recorder) SetHWAccel(available bool) {
	if r == nil {
		return
	}
	if available {
		r.hwAccel.Set(1)
	} else {
		r.hwAccel.Set(0)
	}
}

// MarkRunComplete stamps the end of a pass.
func (r *Recorder) MarkRunComplete(t time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry to path. The parent directory must
// exist; prometheus writes to a temp file and renames it into place.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
