// Package score generates soundtracks by additive synthesis: percussive
// transients on a tempo grid, a cycling bass line, and an amplitude-
// modulated pad. No prerecorded samples are involved, so the output
// carries no fingerprint shared with any existing recording.
package score

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/minho-kw/clipforge/internal/audio"
)

// SampleRate is the synthesis rate in Hz.
const SampleRate = 44100

const peakTarget = 0.65

// bass note multipliers cycled per beat: root, root, fifth, major third
var bassPattern = []float64{1.0, 1.0, 1.5, 1.25}

// Synthesizer renders a soundtrack for a target duration. Deterministic
// for a given (genre, duration, seed).
type Synthesizer struct {
	logger zerolog.Logger
	params GenreParams
	rng    *rand.Rand
}

// New creates a synthesizer for the named genre.
func New(logger zerolog.Logger, genre string, seed int64) *Synthesizer {
	return &Synthesizer{
		logger: logger.With().Str("component", "score").Str("genre", genre).Logger(),
		params: Params(genre),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Render produces exactly round(duration*SampleRate) samples.
func (s *Synthesizer) Render(duration float64) ([]float64, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("score duration must be positive, got %f", duration)
	}

	total := int(math.Round(duration * SampleRate))
	buf := make([]float64, total)
	p := s.params

	beatLen := 60.0 / p.BPM
	beatSamples := int(beatLen * SampleRate)
	if beatSamples < 1 {
		beatSamples = 1
	}

	s.addKicks(buf, beatSamples, p.KickGain)
	s.addHihats(buf, beatSamples, p.HihatGain)
	s.addBass(buf, beatSamples, p.BassRoot, p.BassGain)
	s.addPad(buf, p.PadFreqs, p.PadGain, p.LFORate)
	if p.Snare {
		s.addSnares(buf, beatSamples, p.HihatGain*2)
	}

	applyFades(buf, p.FadeIn, p.FadeOut)
	normalize(buf, peakTarget)

	s.logger.Debug().
		Float64("duration", duration).
		Int("samples", total).
		Float64("bpm", p.BPM).
		Msg("score rendered")

	return buf, nil
}

// RenderToFile renders and writes a 16-bit mono WAV.
func (s *Synthesizer) RenderToFile(duration float64, path string) error {
	samples, err := s.Render(duration)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(path, samples, SampleRate); err != nil {
		return fmt.Errorf("write score: %w", err)
	}
	s.logger.Info().Str("path", path).Float64("duration", duration).Msg("score written")
	return nil
}

// addKicks writes a short 50 Hz decaying sinusoid on every beat.
func (s *Synthesizer) addKicks(buf []float64, beatSamples int, gain float64) {
	hitLen := int(0.12 * float64(SampleRate))
	for start := 0; start < len(buf); start += beatSamples {
		for i := 0; i < hitLen && start+i < len(buf); i++ {
			t := float64(i) / SampleRate
			buf[start+i] += gain * math.Sin(2*math.Pi*50*t) * math.Exp(-14*t)
		}
	}
}

// addHihats writes noise bursts on the off-beats with a randomized
// decay so consecutive hits are not byte-identical.
func (s *Synthesizer) addHihats(buf []float64, beatSamples int, gain float64) {
	sr := float64(SampleRate)
	hitLen := int(0.025 * sr)
	half := beatSamples / 2
	for start := half; start < len(buf); start += beatSamples {
		decay := 60 + s.rng.Float64()*30
		for i := 0; i < hitLen && start+i < len(buf); i++ {
			t := float64(i) / SampleRate
			buf[start+i] += gain * (s.rng.Float64()*2 - 1) * math.Exp(-decay*t)
		}
	}
}

// addSnares writes wider noise bursts on beats two and four of each bar.
func (s *Synthesizer) addSnares(buf []float64, beatSamples int, gain float64) {
	hitLen := int(0.08 * float64(SampleRate))
	bar := beatSamples * 4
	for barStart := 0; barStart < len(buf); barStart += bar {
		for _, beat := range []int{1, 3} {
			start := barStart + beat*beatSamples
			for i := 0; i < hitLen && start+i < len(buf); i++ {
				t := float64(i) / SampleRate
				buf[start+i] += gain * (s.rng.Float64()*2 - 1) * math.Exp(-40*t)
			}
		}
	}
}

// addBass writes one decaying note per beat, cycling the pattern, with
// a quieter octave harmonic on top.
func (s *Synthesizer) addBass(buf []float64, beatSamples int, root, gain float64) {
	note := 0
	for start := 0; start < len(buf); start += beatSamples {
		freq := root * bassPattern[note%len(bassPattern)]
		note++
		for i := 0; i < beatSamples && start+i < len(buf); i++ {
			t := float64(i) / SampleRate
			env := math.Exp(-3 * t)
			buf[start+i] += gain * env * (math.Sin(2*math.Pi*freq*t) +
				0.3*math.Sin(2*math.Pi*freq*2*t))
		}
	}
}

// addPad writes a continuous multi-partial chord with slow amplitude
// modulation. Later partials are progressively quieter.
func (s *Synthesizer) addPad(buf []float64, freqs []float64, gain, lfoRate float64) {
	if len(freqs) == 0 {
		return
	}
	for i := range buf {
		t := float64(i) / SampleRate
		lfo := 1 + 0.3*math.Sin(2*math.Pi*lfoRate*t)
		var v float64
		for k, f := range freqs {
			v += math.Sin(2*math.Pi*f*t) / float64(k+1)
		}
		buf[i] += gain * lfo * v / float64(len(freqs))
	}
}

func applyFades(buf []float64, fadeIn, fadeOut float64) {
	inSamples := int(fadeIn * SampleRate)
	if inSamples > len(buf) {
		inSamples = len(buf)
	}
	for i := 0; i < inSamples; i++ {
		buf[i] *= float64(i) / float64(inSamples)
	}

	outSamples := int(fadeOut * SampleRate)
	if outSamples > len(buf) {
		outSamples = len(buf)
	}
	for i := 0; i < outSamples; i++ {
		buf[len(buf)-1-i] *= float64(i) / float64(outSamples)
	}
}

func normalize(buf []float64, target float64) {
	var peak float64
	for _, v := range buf {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	scale := target / peak
	for i := range buf {
		buf[i] *= scale
	}
}
