package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// AudioFormat defines audio decode format options
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
}

// MixFormat returns the PCM format the sample-domain mixer works in.
func MixFormat(sampleRate int) AudioFormat {
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: sampleRate,
		Channels:   1, // mono
	}
}

// DecodeAudio decodes any input's audio stream into a raw-PCM WAV file
// so it can be mixed sample by sample.
func (e *Executor) DecodeAudio(ctx context.Context, input, output string, format AudioFormat) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Int("sample_rate", format.SampleRate).
		Msg("decoding audio")

	args := []string{
		"-i", input,
		"-vn",
		"-acodec", format.Codec,
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio decode")
		},
	}

	return e.RunRetry(ctx, opts)
}

// VolumeStats holds volume analysis results
type VolumeStats struct {
	MeanVolume float64
	MaxVolume  float64
}

// EffectivelySilent reports whether the stream carries no usable signal.
func (s *VolumeStats) EffectivelySilent() bool {
	return s.MeanVolume < -50
}

// AnalyzeVolume calculates volume statistics for an audio/video file.
// Used to decide whether the source's own audio is worth keeping as a
// low bed under the narration.
func (e *Executor) AnalyzeVolume(ctx context.Context, input string) (*VolumeStats, error) {
	e.logger.Debug().Str("input", input).Msg("analyzing volume")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-af", "volumedetect",
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !strings.Contains(err.Error(), "Conversion failed") &&
			!strings.Contains(err.Error(), "Invalid return value") &&
			!strings.Contains(err.Error(), "Output file is empty") {
			return nil, fmt.Errorf("volume analysis failed: %w", err)
		}
	}

	if output == "" {
		return nil, fmt.Errorf("volume analysis produced no output")
	}

	return parseVolumeOutput(output), nil
}

// parseVolumeOutput extracts volume stats from ffmpeg output
func parseVolumeOutput(output string) *VolumeStats {
	stats := &VolumeStats{MeanVolume: -91, MaxVolume: -91}

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if strings.Contains(line, "mean_volume:") {
			parts := strings.Split(line, "mean_volume:")
			if len(parts) == 2 {
				valStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
				stats.MeanVolume, _ = strconv.ParseFloat(valStr, 64)
			}
		} else if strings.Contains(line, "max_volume:") {
			parts := strings.Split(line, "max_volume:")
			if len(parts) == 2 {
				valStr := strings.Fields(strings.TrimSpace(parts[1]))[0]
				stats.MaxVolume, _ = strconv.ParseFloat(valStr, 64)
			}
		}
	}

	return stats
}
