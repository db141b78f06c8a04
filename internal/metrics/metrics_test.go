package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFile(t *testing.T) {
	r := NewRecorder()
	r.ObserveFile("transcode", true, 1000, 400, 3*time.Second)
	r.ObserveFile("transcode", false, 500, 0, time.Second)
	r.ObserveFile("skip", true, 700, 0, 0)
	r.ObserveFile("remux", true, 200, 190, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues("transcode", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues("transcode", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.files.WithLabelValues("skip", ResultSuccess)))

	// Failures and skips do not count toward byte totals.
	assert.Equal(t, 1200.0, testutil.ToFloat64(r.inputBytes))
	assert.Equal(t, 590.0, testutil.ToFloat64(r.outputBytes))
	assert.Equal(t, 2, testutil.CollectAndCount(r.fileDuration))
}

func TestGauges(t *testing.T) {
	r := NewRecorder()
	r.SetHWAccel(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.hwAccel))
	r.SetHWAccel(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.hwAccel))

	r.MarkRunComplete(time.Unix(1700000000, 0))
	assert.Equal(t, 1.7e9, testutil.ToFloat64(r.lastRun))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.ObserveFile("remux", true, 1, 1, time.Second)
	r.SetHWAccel(true)
	r.MarkRunComplete(time.Now())
	assert.NoError(t, r.WriteTextfile("/nonexistent/x.prom"))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveFile("remux", true, 10, 9, time.Second)

	path := filepath.Join(t.TempDir(), "vidcompress.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, `vidcompress_files_total{action="remux",result="success"} 1`)
	assert.Contains(t, text, "vidcompress_input_bytes_total 10")
	assert.True(t, strings.Contains(text, "# TYPE vidcompress_file_duration_seconds histogram"))

	err = r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
