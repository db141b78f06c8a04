package planner

import "github.com/backmassage/vidcompress/internal/codec"

// Default CRF per software encoder. These are the encoders' own defaults,
// which keeps output comparable to a plain ffmpeg invocation.
var defaultCRF = map[codec.Video]int{
	codec.HEVC: 28,
	codec.H264: 23,
	codec.VP9:  31,
}

// Default hardware quality per family. VideoToolbox uses -q:v (1-100,
// higher is better); the others take a QP/CQ style value.
var defaultHWQuality = map[codec.HWFamily]int{
	codec.HWVideoToolbox: 65,
	codec.HWVAAPI:        24,
	codec.HWNVENC:        26,
	codec.HWQSV:          24,
}

// Quality clamp ranges.
const (
	crfMin       = 0
	crfMax       = 63
	hwQualityMin = 1
	hwQualityMax = 100
)

// ResolveQuality fills in defaults for any value the user left unset
// (crf < 0, hwQuality == 0).
func ResolveQuality(v codec.Video, family codec.HWFamily, crf int, preset string, hwQuality int) Quality {
	q := Quality{CRF: crf, Preset: preset, HWQuality: hwQuality}
	if q.CRF < 0 {
		q.CRF = defaultCRF[v]
	}
	q.CRF = clamp(q.CRF, crfMin, crfMax)
	if q.HWQuality == 0 {
		q.HWQuality = defaultHWQuality[family]
	}
	if q.HWQuality != 0 {
		q.HWQuality = clamp(q.HWQuality, hwQualityMin, hwQualityMax)
	}
	return q
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
