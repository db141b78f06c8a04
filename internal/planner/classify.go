package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/probe"
)

// Classify decides what a file needs to reach the target profile. It is a
// pure function of its inputs; all comparisons use canonical identifiers.
//
// Precedence:
//  1. Skip when container, video and audio (codec and channel count) match.
//     A file without audio is audio-conforming.
//  2. Remux when video and audio match but the container differs.
//  3. AudioReencode when video and the audio codec match but the channel
//     count differs.
//  4. Transcode otherwise.
func Classify(p probe.MediaProfile, t config.TargetProfile) Action {
	videoOK := p.VideoCodec == t.VideoCodec
	audioCodecOK := !p.HasAudio || p.AudioCodec == t.AudioCodec
	channelsOK := !p.HasAudio || p.AudioChannels == t.AudioChannels
	containerOK := p.Container == t.Container

	switch {
	case videoOK && audioCodecOK && channelsOK && containerOK:
		return ActionSkip
	case videoOK && audioCodecOK && channelsOK:
		return ActionRemux
	case videoOK && audioCodecOK:
		return ActionAudioReencode
	default:
		return ActionTranscode
	}
}

// Conforms reports whether p already matches t.
func Conforms(p probe.MediaProfile, t config.TargetProfile) bool {
	return Classify(p, t) == ActionSkip
}

// Explain lists the properties of p that differ from t, e.g.
// "video h264≠hevc, container mkv≠mp4". Empty when p conforms.
func Explain(p probe.MediaProfile, t config.TargetProfile) string {
	var diffs []string
	if p.Container != t.Container {
		diffs = append(diffs, fmt.Sprintf("container %s≠%s", p.Container, t.Container))
	}
	if p.VideoCodec != t.VideoCodec {
		diffs = append(diffs, fmt.Sprintf("video %s≠%s", p.VideoCodec, t.VideoCodec))
	}
	if p.HasAudio {
		if p.AudioCodec != t.AudioCodec {
			diffs = append(diffs, fmt.Sprintf("audio %s≠%s", p.AudioCodec, t.AudioCodec))
		}
		if p.AudioChannels != t.AudioChannels {
			diffs = append(diffs, fmt.Sprintf("channels %d≠%d", p.AudioChannels, t.AudioChannels))
		}
	}
	return strings.Join(diffs, ", ")
}
