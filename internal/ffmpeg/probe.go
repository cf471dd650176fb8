package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/minho-kw/clipforge/pkg/util"
)

// ffprobe JSON shapes, limited to the fields the pipeline consumes.
type probeReport struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
	Duration   string `json:"duration"`
}

// ProbeVideo reads container and stream metadata via ffprobe. Source
// files are never trusted: everything downstream sizes itself off this
// probe, not off caller claims. Works on audio-only files too, where
// Width/Height stay zero and HasAudio reports the content.
func (e *Executor) ProbeVideo(ctx context.Context, path string) (*VideoInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("probe: empty path")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	var report probeReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("probe %s: bad ffprobe output: %w", path, err)
	}

	info := &VideoInfo{FilePath: path}
	info.Duration = asDuration(report.Format.Duration)
	info.Bitrate = asInt64(report.Format.BitRate)

	for _, st := range report.Streams {
		switch st.CodecType {
		case "video":
			info.Width = st.Width
			info.Height = st.Height
			info.VideoCodec = st.CodecName
			info.FPS = util.ParseFrameRate(st.RFrameRate)
		case "audio":
			info.HasAudio = true
			info.AudioCodec = st.CodecName
			info.AudioBitrate = asInt64(st.BitRate)
		}
		// Some containers only report duration per stream; take the
		// longest one when the format block carries none.
		if info.Duration == 0 {
			if d := asDuration(st.Duration); d > info.Duration {
				info.Duration = d
			}
		}
	}

	e.logger.Debug().
		Str("path", path).
		Float64("seconds", info.Seconds()).
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("audio", info.HasAudio).
		Msg("probed")

	return info, nil
}

func asDuration(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func asInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
