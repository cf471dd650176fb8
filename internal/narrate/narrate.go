// Package narrate turns a narration script into an audio track plus
// word-level timing events, synchronizing independently produced audio
// and text so captions can be cut against the spoken words.
package narrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minho-kw/clipforge/internal/audio"
)

// WordTiming marks where one spoken word sits in the generated audio.
// Offsets are fractional seconds at millisecond precision or better.
type WordTiming struct {
	Text     string
	Start    float64
	Duration float64
}

// End returns the word's end offset.
func (w WordTiming) End() float64 { return w.Start + w.Duration }

// EventKind tags synthesis stream events.
type EventKind int

const (
	// EventAudio carries a chunk of encoded audio.
	EventAudio EventKind = iota
	// EventBoundary carries a word boundary timing.
	EventBoundary
	// EventError carries a stream failure.
	EventError
)

// Event is one element of the synthesis stream. The engine interleaves
// audio chunks with boundary events; there is no guaranteed relationship
// between word count and boundary count.
type Event struct {
	Kind     EventKind
	Audio    []byte
	Boundary WordTiming
	Err      error
}

// Synthesizer is the injected speech-synthesis capability. The returned
// channel is closed when the utterance is complete.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, rate string) (<-chan Event, error)
}

// Prober measures the duration of an audio file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

// Script is an ordered, externally produced sentence list.
type Script []string

// Validate rejects empty scripts and blank sentences.
func (s Script) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("narration script is empty")
	}
	for i, line := range s {
		if strings.TrimSpace(line) == "" {
			return fmt.Errorf("narration sentence %d is blank", i)
		}
	}
	return nil
}

// Utterance joins the script into one utterance, appending terminal
// punctuation where missing so the engine pauses naturally between
// sentences.
func (s Script) Utterance() string {
	parts := make([]string, 0, len(s))
	for _, line := range s {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !hasTerminal(line) {
			line += "."
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}

// WordCount counts whitespace-separated tokens across the script.
func (s Script) WordCount() int {
	n := 0
	for _, line := range s {
		n += len(strings.Fields(line))
	}
	return n
}

func hasTerminal(s string) bool {
	r := []rune(s)
	switch r[len(r)-1] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// Result is the synchronized narration output.
type Result struct {
	AudioPath string
	Timings   []WordTiming
	Duration  float64
	Degraded  bool // fallback timings in use
}

// nominal seconds per word used to size the silent fallback track
const fallbackSecondsPerWord = 0.35

// PadPauses stretches the gap after each sentence by appending an
// ellipsis, which the engine renders as a longer breath. Used for
// calmer delivery styles.
func PadPauses(text string) string {
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			b.WriteString(" ...")
		}
	}
	return b.String()
}

// Synchronizer drives a Synthesizer and accumulates its event stream.
type Synchronizer struct {
	logger   zerolog.Logger
	synth    Synthesizer
	probe    Prober
	timeout  time.Duration
	pausePad bool
}

// SetPausePadding toggles ellipsis pause shaping of the utterance.
func (s *Synchronizer) SetPausePadding(on bool) { s.pausePad = on }

// NewSynchronizer creates a synchronizer. timeout bounds one synthesis
// call; expiry is a degradation, not a job failure.
func NewSynchronizer(logger zerolog.Logger, synth Synthesizer, probe Prober, timeout time.Duration) *Synchronizer {
	return &Synchronizer{
		logger:  logger.With().Str("component", "narrate").Logger(),
		synth:   synth,
		probe:   probe,
		timeout: timeout,
	}
}

// Narrate synthesizes the script into dir and returns the audio path
// with word timings. Boundary offsets arrive from the engine in
// 100-nanosecond ticks and are converted to seconds here.
func (s *Synchronizer) Narrate(ctx context.Context, script Script, voice, rate, dir string) (*Result, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}

	utterance := script.Utterance()
	if s.pausePad {
		utterance = PadPauses(utterance)
	}

	audioPath := filepath.Join(dir, "narration.mp3")
	timings, synthErr := s.accumulate(ctx, utterance, voice, rate, audioPath)

	if synthErr != nil {
		s.logger.Warn().Err(synthErr).Msg("synthesis degraded")
		return s.fallback(script, dir, audioPath)
	}

	duration, err := s.probe(ctx, audioPath)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("narration audio unreadable: %w", err)
	}

	if len(timings) == 0 {
		s.logger.Warn().Msg("engine returned no word boundaries, using uniform split")
		return &Result{
			AudioPath: audioPath,
			Timings:   uniformTimings(script, duration),
			Duration:  duration,
			Degraded:  true,
		}, nil
	}

	s.logger.Info().
		Int("boundaries", len(timings)).
		Float64("duration", duration).
		Msg("narration synchronized")

	return &Result{AudioPath: audioPath, Timings: timings, Duration: duration}, nil
}

// accumulate runs the single event-consumption loop.
func (s *Synchronizer) accumulate(ctx context.Context, text, voice, rate, audioPath string) ([]WordTiming, error) {
	synthCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	events, err := s.synth.Synthesize(synthCtx, text, voice, rate)
	if err != nil {
		return nil, fmt.Errorf("synthesis start: %w", err)
	}

	f, err := os.Create(audioPath)
	if err != nil {
		return nil, fmt.Errorf("create narration file: %w", err)
	}
	defer f.Close()

	var (
		timings    []WordTiming
		audioBytes int
	)

	for {
		select {
		case <-synthCtx.Done():
			return nil, fmt.Errorf("synthesis timed out: %w", synthCtx.Err())
		case ev, ok := <-events:
			if !ok {
				if audioBytes == 0 {
					return nil, fmt.Errorf("synthesis produced no audio")
				}
				return timings, nil
			}
			switch ev.Kind {
			case EventAudio:
				n, werr := f.Write(ev.Audio)
				if werr != nil {
					return nil, fmt.Errorf("write narration audio: %w", werr)
				}
				audioBytes += n
			case EventBoundary:
				timings = append(timings, ev.Boundary)
			case EventError:
				return nil, fmt.Errorf("synthesis stream: %w", ev.Err)
			}
		}
	}
}

// fallback produces a silent narration track with uniform timings when
// synthesis fails outright. The job degrades rather than aborting.
func (s *Synchronizer) fallback(script Script, dir, partial string) (*Result, error) {
	// A partial audio file from an interrupted stream is unusable.
	_ = os.Remove(partial)

	duration := float64(script.WordCount()) * fallbackSecondsPerWord
	if duration < 2 {
		duration = 2
	}

	silencePath := filepath.Join(dir, "narration_silence.wav")
	silence := make([]float64, int(duration*44100))
	if err := audio.WriteWAV(silencePath, silence, 44100); err != nil {
		return nil, fmt.Errorf("write fallback track: %w", err)
	}

	return &Result{
		AudioPath: silencePath,
		Timings:   uniformTimings(script, duration),
		Duration:  duration,
		Degraded:  true,
	}, nil
}

// uniformTimings divides the measured duration evenly across sentences,
// one timing per sentence so the caption builder can still cut cues.
func uniformTimings(script Script, duration float64) []WordTiming {
	window := duration / float64(len(script))
	timings := make([]WordTiming, 0, len(script))
	for i, line := range script {
		timings = append(timings, WordTiming{
			Text:     strings.TrimSpace(line),
			Start:    float64(i) * window,
			Duration: window,
		})
	}
	return timings
}

// TicksToSeconds converts engine 100-nanosecond ticks to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / 10_000_000
}
