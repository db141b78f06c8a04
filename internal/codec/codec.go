// Package codec is the single source of truth for codec and container
// identifiers. ffprobe codec names, user-facing aliases, and ffmpeg encoder
// names all normalize to the same canonical values here, so the classifier
// and the command builder never disagree about what "H.265" means.
package codec

import (
	"path/filepath"
	"strings"
)

// Video is a canonical video codec identifier.
type Video string

const (
	HEVC Video = "hevc"
	H264 Video = "h264"
	VP9  Video = "vp9"
)

// Audio is a canonical audio codec identifier.
type Audio string

// AAC is the only audio codec files are normalized to.
const AAC Audio = "aac"

// Container is a canonical container identifier.
type Container string

const (
	MKV  Container = "mkv"
	MP4  Container = "mp4"
	WebM Container = "webm"
	MOV  Container = "mov"
	AVI  Container = "avi"
	WMV  Container = "wmv"
	FLV  Container = "flv"
	M2TS Container = "m2ts"
)

// HWFamily names a hardware encoder family.
type HWFamily string

const (
	HWNone         HWFamily = "none"
	HWVideoToolbox HWFamily = "videotoolbox"
	HWVAAPI        HWFamily = "vaapi"
	HWNVENC        HWFamily = "nvenc"
	HWQSV          HWFamily = "qsv"
)

type videoInfo struct {
	aliases  []string
	software string
	hardware map[HWFamily]string
}

var videoRegistry = map[Video]*videoInfo{
	HEVC: {
		aliases:  []string{"hevc", "h265", "h.265", "x265", "hev1", "hvc1"},
		software: "libx265",
		hardware: map[HWFamily]string{
			HWVideoToolbox: "hevc_videotoolbox",
			HWVAAPI:        "hevc_vaapi",
			HWNVENC:        "hevc_nvenc",
			HWQSV:          "hevc_qsv",
		},
	},
	H264: {
		aliases:  []string{"h264", "h.264", "x264", "avc", "avc1"},
		software: "libx264",
		hardware: map[HWFamily]string{
			HWVideoToolbox: "h264_videotoolbox",
			HWVAAPI:        "h264_vaapi",
			HWNVENC:        "h264_nvenc",
			HWQSV:          "h264_qsv",
		},
	},
	VP9: {
		aliases:  []string{"vp9", "vp09"},
		software: "libvpx-vp9",
		hardware: map[HWFamily]string{
			HWVAAPI: "vp9_vaapi",
			HWQSV:   "vp9_qsv",
		},
	},
}

var audioAliases = map[string]Audio{
	"aac":        AAC,
	"libfdk_aac": AAC,
	"aac_at":     AAC,
	"aac_mf":     AAC,
}

// videoIndex maps every alias and encoder name to its codec.
var videoIndex map[string]Video

func init() {
	videoIndex = make(map[string]Video)
	for v, info := range videoRegistry {
		for _, a := range info.aliases {
			videoIndex[a] = v
		}
		videoIndex[info.software] = v
		for _, enc := range info.hardware {
			videoIndex[enc] = v
		}
	}
}

// ParseVideo resolves a user-supplied or ffprobe codec name.
func ParseVideo(s string) (Video, bool) {
	v, ok := videoIndex[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}

// CanonicalVideo normalizes name, returning it lower-cased when unknown.
func CanonicalVideo(name string) Video {
	if v, ok := ParseVideo(name); ok {
		return v
	}
	return Video(strings.ToLower(strings.TrimSpace(name)))
}

// CanonicalAudio normalizes an audio codec or encoder name.
func CanonicalAudio(name string) Audio {
	lower := strings.ToLower(strings.TrimSpace(name))
	if a, ok := audioAliases[lower]; ok {
		return a
	}
	return Audio(lower)
}

// CanonicalContainer maps an ffprobe format_name to a container. ffprobe
// reports families ("matroska,webm", "mov,mp4,m4a,3gp,3g2,mj2"), so the file
// extension decides between members of the same family.
func CanonicalContainer(formatName, path string) Container {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	families := strings.Split(strings.ToLower(formatName), ",")
	has := func(name string) bool {
		for _, f := range families {
			if strings.TrimSpace(f) == name {
				return true
			}
		}
		return false
	}

	switch {
	case has("matroska"), has("webm"):
		if ext == "webm" {
			return WebM
		}
		return MKV
	case has("mov"), has("mp4"):
		if ext == "mov" {
			return MOV
		}
		return MP4
	case has("avi"):
		return AVI
	case has("asf"):
		return WMV
	case has("flv"):
		return FLV
	case has("mpegts"):
		return M2TS
	}
	return Container(strings.TrimSpace(families[0]))
}

// SoftwareEncoder returns the ffmpeg software encoder for v.
func SoftwareEncoder(v Video) string {
	if info, ok := videoRegistry[v]; ok {
		return info.software
	}
	return string(v)
}

// MaxCRF is the highest CRF the software encoder for v accepts: 51 for
// x264/x265, 63 for libvpx-vp9.
func MaxCRF(v Video) int {
	if v == VP9 {
		return 63
	}
	return 51
}

// HardwareEncoder returns the encoder for v in family, if one exists.
func HardwareEncoder(v Video, family HWFamily) (string, bool) {
	info, ok := videoRegistry[v]
	if !ok {
		return "", false
	}
	enc, ok := info.hardware[family]
	return enc, ok
}

// Encoder picks the hardware encoder when hwAvailable and the family defines
// one for v, otherwise the software encoder. The second result reports
// whether the returned encoder is a hardware one.
func Encoder(v Video, family HWFamily, hwAvailable bool) (string, bool) {
	if hwAvailable {
		if enc, ok := HardwareEncoder(v, family); ok {
			return enc, true
		}
	}
	return SoftwareEncoder(v), false
}

// IsHardwareEncoder reports whether name is a hardware encoder in the table.
func IsHardwareEncoder(name string) bool {
	for _, info := range videoRegistry {
		for _, enc := range info.hardware {
			if enc == name {
				return true
			}
		}
	}
	return false
}

// Encoders lists every encoder in the table grouped by codec.
func Encoders() map[Video][]string {
	out := make(map[Video][]string, len(videoRegistry))
	for v, info := range videoRegistry {
		list := []string{info.software}
		for _, enc := range info.hardware {
			list = append(list, enc)
		}
		out[v] = list
	}
	return out
}

// Label is the user-facing spelling of v ("H.265" etc.).
func (v Video) Label() string {
	switch v {
	case HEVC:
		return "H.265"
	case H264:
		return "H.264"
	case VP9:
		return "VP9"
	}
	return strings.ToUpper(string(v))
}
