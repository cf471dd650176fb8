// Package audio mixes narration, soundtrack, and optional source-bed
// tracks into a single fixed-duration PCM stream.
package audio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Track is one input to the mixer. Offset positions the track on the
// output timeline in seconds. Loop tracks repeat until the target
// duration; non-loop tracks go silent past their end.
type Track struct {
	Name    string
	Samples []float64
	Gain    float64
	Offset  float64
	Loop    bool
}

// Mixer sums tracks into one mono stream of exact target duration.
type Mixer struct {
	logger     zerolog.Logger
	sampleRate int
}

// NewMixer creates a mixer at the given sample rate.
func NewMixer(logger zerolog.Logger, sampleRate int) *Mixer {
	return &Mixer{
		logger:     logger.With().Str("component", "mixer").Logger(),
		sampleRate: sampleRate,
	}
}

// SampleRate returns the mixer's working rate.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// Mix sums the tracks over exactly duration seconds. Gains are chosen
// upstream to stay inside headroom, so no renormalization happens here;
// the sum is hard-clamped to [-1, 1] rather than left to overflow.
func (m *Mixer) Mix(tracks []Track, duration float64) ([]float64, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("mix duration must be positive, got %f", duration)
	}

	total := int(math.Round(duration * float64(m.sampleRate)))
	out := make([]float64, total)

	for _, t := range tracks {
		if len(t.Samples) == 0 {
			m.logger.Debug().Str("track", t.Name).Msg("skipping empty track")
			continue
		}

		gain := t.Gain
		if gain == 0 {
			gain = 1
		}

		start := int(math.Round(t.Offset * float64(m.sampleRate)))
		n := len(t.Samples)

		// A negative offset starts the track before the timeline; the
		// part before zero is simply dropped.
		first := start
		if first < 0 {
			first = 0
		}

		for i := first; i < total; i++ {
			idx := i - start
			if idx >= n {
				if !t.Loop {
					break
				}
				idx %= n
			}
			out[i] += t.Samples[idx] * gain
		}

		m.logger.Debug().
			Str("track", t.Name).
			Float64("gain", gain).
			Float64("offset", t.Offset).
			Bool("loop", t.Loop).
			Msg("track mixed")
	}

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}

	return out, nil
}

// MixToFile mixes and writes the result as a 16-bit WAV.
func (m *Mixer) MixToFile(tracks []Track, duration float64, path string) error {
	samples, err := m.Mix(tracks, duration)
	if err != nil {
		return err
	}
	if err := WriteWAV(path, samples, m.sampleRate); err != nil {
		return fmt.Errorf("write mixed audio: %w", err)
	}
	m.logger.Info().
		Str("path", path).
		Float64("duration", duration).
		Int("tracks", len(tracks)).
		Msg("audio mix written")
	return nil
}
