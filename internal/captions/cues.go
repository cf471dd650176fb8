// Package captions groups word timings into time-coded caption cues and
// renders them as SRT or ASS subtitle files.
package captions

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/minho-kw/clipforge/internal/narrate"
)

// Layer distinguishes intro-title cues from body captions.
type Layer int

const (
	LayerBody Layer = iota
	LayerIntro
)

// Cue is one time-coded span of on-screen text.
type Cue struct {
	Start float64
	End   float64
	Text  string
	Layer Layer
}

// Duration returns the visible span in seconds.
func (c Cue) Duration() float64 { return c.End - c.Start }

// Options controls cue grouping. MaxChars is tuned per font and
// resolution, so it is configuration rather than a constant.
type Options struct {
	MaxChars    int     // emit once accumulated text reaches this length
	CommaChars  int     // emit on comma once this much text accumulated
	MinDuration float64 // cues are stretched to at least this long
	TrailingPad float64 // added to each cue's end for readability
	FinalPad    float64 // added to the last cue's end instead
}

// DefaultOptions match a bold CJK font at 1080x1920.
func DefaultOptions() Options {
	return Options{
		MaxChars:    15,
		CommaChars:  10,
		MinDuration: 0.5,
		TrailingPad: 0.1,
		FinalPad:    0.3,
	}
}

// Builder turns word timings into cues.
type Builder struct {
	logger zerolog.Logger
	opts   Options
}

// NewBuilder creates a cue builder.
func NewBuilder(logger zerolog.Logger, opts Options) *Builder {
	if opts.MaxChars <= 0 {
		opts = DefaultOptions()
	}
	return &Builder{
		logger: logger.With().Str("component", "captions").Logger(),
		opts:   opts,
	}
}

// Build greedily accumulates words into cues. A cue is emitted when the
// text reaches MaxChars, the word ends with terminal punctuation, a
// comma arrives past CommaChars, or input runs out. Ends get a trailing
// pad; the resulting bounded overlap with the next cue's start is
// intentional and starts stay monotonic.
func (b *Builder) Build(words []narrate.WordTiming) []Cue {
	var cues []Cue
	var acc []string
	var cueStart, lastEnd float64

	flush := func() {
		if len(acc) == 0 {
			return
		}
		cues = append(cues, Cue{
			Start: cueStart,
			End:   lastEnd,
			Text:  strings.Join(acc, " "),
			Layer: LayerBody,
		})
		acc = acc[:0]
	}

	for _, w := range words {
		if len(acc) == 0 {
			cueStart = w.Start
		}
		acc = append(acc, w.Text)
		lastEnd = w.Start + w.Duration

		text := strings.Join(acc, " ")
		switch {
		case endsTerminal(w.Text):
			flush()
		case len([]rune(text)) >= b.opts.MaxChars:
			flush()
		case endsComma(w.Text) && len([]rune(text)) >= b.opts.CommaChars:
			flush()
		}
	}
	flush()

	b.pad(cues)
	b.logger.Debug().Int("words", len(words)).Int("cues", len(cues)).Msg("cues built")
	return cues
}

// BuildFallback synthesizes one cue per sentence over uniform windows
// when no word timings are available. startAt is where the body clock
// begins (after any intro window).
func (b *Builder) BuildFallback(sentences []string, totalDuration, startAt float64) []Cue {
	if len(sentences) == 0 || totalDuration <= 0 {
		return nil
	}

	window := totalDuration / float64(len(sentences))
	cues := make([]Cue, 0, len(sentences))
	for i, s := range sentences {
		start := startAt + float64(i)*window
		cues = append(cues, Cue{
			Start: start,
			End:   start + window,
			Text:  strings.TrimSpace(s),
			Layer: LayerBody,
		})
	}

	b.pad(cues)
	b.logger.Info().
		Int("sentences", len(sentences)).
		Float64("window", window).
		Msg("uniform fallback cues built")
	return cues
}

// BuildIntro lays 1-3 short title lines over a fixed leading window.
func (b *Builder) BuildIntro(lines []string, window float64) []Cue {
	if len(lines) == 0 || window <= 0 {
		return nil
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}

	span := window / float64(len(lines))
	cues := make([]Cue, 0, len(lines))
	for i, line := range lines {
		cues = append(cues, Cue{
			Start: float64(i) * span,
			End:   float64(i+1) * span,
			Text:  strings.TrimSpace(line),
			Layer: LayerIntro,
		})
	}
	return cues
}

// Shift moves every cue by dt seconds. Used to start the body clock at
// the end of the intro window.
func Shift(cues []Cue, dt float64) []Cue {
	out := make([]Cue, len(cues))
	for i, c := range cues {
		c.Start += dt
		c.End += dt
		out[i] = c
	}
	return out
}

// pad applies trailing pads and the minimum duration in place.
func (b *Builder) pad(cues []Cue) {
	for i := range cues {
		pad := b.opts.TrailingPad
		if i == len(cues)-1 {
			pad = b.opts.FinalPad
		}
		cues[i].End += pad
		if cues[i].Duration() < b.opts.MinDuration {
			cues[i].End = cues[i].Start + b.opts.MinDuration
		}
	}
}

func endsTerminal(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	r := []rune(word)
	switch r[len(r)-1] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func endsComma(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	r := []rune(word)
	return r[len(r)-1] == ',' || r[len(r)-1] == '、'
}
