// Package probe provides ffprobe-based media inspection. A single JSON call
// per file yields a ProbeResult, which is reduced to the MediaProfile the
// classifier works on.
//
// Inspection failures (missing tool, timeout, malformed output, no video
// stream) are reported as *InspectionError and are always per-file.
package probe
