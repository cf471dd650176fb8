package pipeline

import (
	"github.com/minho-kw/clipforge/internal/motion"
	"github.com/minho-kw/clipforge/internal/narrate"
)

// StyleProfile is the presentation contract handed in by collaborators:
// voice, caption look, motion family, soundtrack genre.
type StyleProfile struct {
	Voice           string
	SpeechRate      string
	PausePadding    bool
	MotionPreset    motion.Preset
	MaxZoom         float64
	Genre           string
	IntroLines      []string
	KeepSourceAudio bool
	Wash            bool // run the full single-asset launder chain
}

// Job is one render request. Exactly one of Source or Sources is set:
// Source for a single image/video, Sources for multi-clip assembly.
type Job struct {
	Source      string
	Sources     []string
	Script      narrate.Script
	DurationCap float64
	Style       StyleProfile
	Output      string // final file path; derived from the job id when empty
	Seed        int64  // 0 means time-seeded
}

// Result is the success metadata for collaborators.
type Result struct {
	Path        string
	Duration    float64
	FileSize    int64
	CaptionCues int
	Encoder     string
	Degraded    bool
	Warnings    []string
}
