package planner

import (
	"github.com/backmassage/vidcompress/internal/config"
	"github.com/backmassage/vidcompress/internal/probe"
)

// BuildAudioPlan produces the audio handling strategy for a file.
//
//   - No audio stream → None (produces -an).
//   - Skip and Remux → Copy; the stream already conforms.
//   - AudioReencode and Transcode → encode the primary stream to AAC with
//     the target channel count at bitrate.
func BuildAudioPlan(action Action, p probe.MediaProfile, t config.TargetProfile, bitrate string) AudioPlan {
	if !p.HasAudio {
		return AudioPlan{None: true}
	}
	ap := AudioPlan{
		StreamIndex: p.AudioIndex,
		Codec:       t.AudioCodec,
		Channels:    t.AudioChannels,
	}
	switch action {
	case ActionSkip, ActionRemux:
		ap.Copy = true
	default:
		ap.Bitrate = bitrate
	}
	return ap
}
