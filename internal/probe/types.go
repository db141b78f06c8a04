package probe

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/backmassage/vidcompress/internal/codec"
)

// Sentinel errors wrapped by InspectionError.
var (
	ErrNoVideoStream = errors.New("no video stream")
	ErrEmptyProbe    = errors.New("ffprobe returned no format or streams")
)

// InspectionError reports that a file could not be inspected. It never
// aborts a run; the walker records it as a failed file.
type InspectionError struct {
	Path string
	Err  error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("failed to get media info for %s: %v", e.Path, e.Err)
}

func (e *InspectionError) Unwrap() error { return e.Err }

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename       string
	NbStreams      int
	FormatName     string
	FormatLongName string
	Duration       float64
	Size           int64
	BitRate        int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	Profile       string
	PixFmt        string
	Width         int
	Height        int
	BitRate       int64
	IsAttachedPic bool
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index         int
	Codec         string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitRate       int64
	Language      string
	IsDefault     bool
}

// ProbeResult is the fully parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
	AudioStreams []AudioStream
}

// PrimaryAudio returns the default-disposition audio stream, falling back
// to the first audio stream, along with its position among the audio
// streams. Nil when the file has no audio.
func (p *ProbeResult) PrimaryAudio() (*AudioStream, int) {
	for i := range p.AudioStreams {
		if p.AudioStreams[i].IsDefault {
			return &p.AudioStreams[i], i
		}
	}
	if len(p.AudioStreams) > 0 {
		return &p.AudioStreams[0], 0
	}
	return nil, -1
}

// VideoBitRate returns the primary video stream bitrate in bits/sec,
// falling back to the format-level bitrate when the stream value is
// unavailable or zero.
func (p *ProbeResult) VideoBitRate() int64 {
	if p.PrimaryVideo != nil && p.PrimaryVideo.BitRate > 0 {
		return p.PrimaryVideo.BitRate
	}
	return p.Format.BitRate
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (p *ProbeResult) Resolution() string {
	if p.PrimaryVideo == nil || p.PrimaryVideo.Width <= 0 || p.PrimaryVideo.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(p.PrimaryVideo.Width) + "x" + strconv.Itoa(p.PrimaryVideo.Height)
}

// MediaProfile is the classification-relevant summary of one file. Codec and
// container fields hold canonical identifiers from the codec package.
type MediaProfile struct {
	Path          string
	Container     codec.Container
	VideoCodec    codec.Video
	VideoIndex    int         // Absolute stream index of the primary video stream.
	AudioCodec    codec.Audio // Empty when HasAudio is false.
	AudioChannels int
	AudioIndex    int // Position of the primary audio stream among audio streams.
	HasAudio      bool
	Duration      time.Duration
	Size          int64
	Resolution    string
	VideoBitRate  int64
}

// Profile reduces the probe result for the file at path to a MediaProfile.
// It fails with ErrNoVideoStream when there is no usable video stream.
func (p *ProbeResult) Profile(path string) (MediaProfile, error) {
	if p.PrimaryVideo == nil {
		return MediaProfile{}, ErrNoVideoStream
	}
	mp := MediaProfile{
		Path:         path,
		Container:    codec.CanonicalContainer(p.Format.FormatName, path),
		VideoCodec:   codec.CanonicalVideo(p.PrimaryVideo.Codec),
		VideoIndex:   p.PrimaryVideo.Index,
		Duration:     time.Duration(p.Format.Duration * float64(time.Second)),
		Size:         p.Format.Size,
		Resolution:   p.Resolution(),
		VideoBitRate: p.VideoBitRate(),
	}
	if a, idx := p.PrimaryAudio(); a != nil {
		mp.HasAudio = true
		mp.AudioIndex = idx
		mp.AudioCodec = codec.CanonicalAudio(a.Codec)
		mp.AudioChannels = a.Channels
	}
	return mp, nil
}

// String renders the profile the way it is logged per file.
func (m MediaProfile) String() string {
	audio := "no audio"
	if m.HasAudio {
		audio = fmt.Sprintf("%s %dch", m.AudioCodec, m.AudioChannels)
	}
	return fmt.Sprintf("%s | %s | %s", m.Container, m.VideoCodec, audio)
}
