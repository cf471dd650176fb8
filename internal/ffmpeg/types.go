package ffmpeg

import "time"

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Seconds returns the probed duration in fractional seconds.
func (v *VideoInfo) Seconds() float64 {
	return v.Duration.Seconds()
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Speed      string
	Percentage float64
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// EncoderProfile describes one encode candidate in preference order.
type EncoderProfile struct {
	Name     string
	Hardware bool
	Params   []string
}

// EncoderCandidates is the probe order: hardware encoders first, software
// last as the guaranteed-available fallback.
var EncoderCandidates = []EncoderProfile{
	{Name: "h264_nvenc", Hardware: true, Params: []string{"-preset", "p4", "-rc", "vbr", "-cq", "23"}},
	{Name: "h264_amf", Hardware: true, Params: []string{"-quality", "balanced"}},
	{Name: "h264_qsv", Hardware: true, Params: []string{"-preset", "medium"}},
	{Name: "libx264", Hardware: false, Params: []string{"-preset", DefaultPreset, "-crf", "23"}},
}
