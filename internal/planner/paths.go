package planner

import (
	"path/filepath"
	"strings"

	"github.com/backmassage/vidcompress/internal/codec"
)

// Name suffixes used when the original is kept, so the converted copy never
// replaces its source.
const (
	SuffixReencoded = "_re-encoded"
	SuffixRemuxed   = "_remuxed"
)

// workMarker tags in-progress files. Discovery ignores anything carrying it.
const workMarker = ".vidcompress-tmp"

// OutputPath returns the final output location for input: same directory
// and stem with the container's extension. With keepOriginal the stem gets
// a suffix naming the action.
func OutputPath(input string, action Action, container codec.Container, keepOriginal bool) string {
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if keepOriginal {
		switch action {
		case ActionRemux:
			stem += SuffixRemuxed
		case ActionTranscode, ActionAudioReencode:
			stem += SuffixReencoded
		}
	}
	return filepath.Join(dir, stem+"."+string(container))
}

// WorkPath returns the hidden temporary sibling ffmpeg writes to before the
// result is promoted to output. The extension is kept so ffmpeg picks the
// right muxer.
func WorkPath(output string) string {
	dir := filepath.Dir(output)
	base := filepath.Base(output)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+workMarker+ext)
}

// IsWorkFile reports whether path is a temporary file produced by WorkPath.
func IsWorkFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.Contains(base, workMarker+".")
}

// SetOutput points the plan at a new final path and derives its work path.
func (p *FilePlan) SetOutput(output string) {
	p.OutputPath = output
	p.WorkPath = WorkPath(output)
}
