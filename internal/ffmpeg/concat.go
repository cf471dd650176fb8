package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs       []string
	Output       string
	ReEncode     bool
	Encoder      EncoderProfile
	ProgressFunc ProgressFunc
}

// Concat merges multiple video files with the concat demuxer. This is
// the hard-cut fallback when a cross-fade chain fails.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating videos")

	concatFile, err := e.createConcatFile(opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
	}

	if opts.ReEncode {
		enc := opts.Encoder
		if enc.Name == "" {
			enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
		}
		args = append(args, "-c:v", enc.Name)
		args = append(args, enc.Params...)
		args = append(args, "-c:a", DefaultAudioCodec)
	} else {
		args = append(args, "-c", "copy")
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	return e.RunRetry(ctx, runOpts)
}

// XfadeOptions joins clips with a cross-fade at each junction.
type XfadeOptions struct {
	Inputs       []string
	Durations    []float64 // per-input durations in seconds, same order
	FadeDuration float64
	Output       string
	Encoder      EncoderProfile
	FPS          float64
	ProgressFunc ProgressFunc
}

// ConcatXfade builds an xfade filter graph chaining every input into the
// next. Junction offsets are cumulative: each fade starts fadeDuration
// before the running total of preceding clip lengths.
func (e *Executor) ConcatXfade(ctx context.Context, opts XfadeOptions) error {
	if len(opts.Inputs) < 2 {
		return fmt.Errorf("xfade needs at least two inputs")
	}
	if len(opts.Durations) != len(opts.Inputs) {
		return fmt.Errorf("xfade needs one duration per input")
	}
	if opts.FadeDuration <= 0 {
		return fmt.Errorf("fade duration must be positive")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Float64("fade", opts.FadeDuration).
		Str("output", opts.Output).
		Msg("concatenating with cross-fades")

	var args []string
	for _, in := range opts.Inputs {
		args = append(args, "-i", in)
	}

	var graph strings.Builder
	prev := "[0:v]"
	offset := 0.0
	for i := 1; i < len(opts.Inputs); i++ {
		offset += opts.Durations[i-1] - opts.FadeDuration
		out := fmt.Sprintf("[vx%d]", i)
		if i == len(opts.Inputs)-1 {
			out = "[vout]"
		}
		fmt.Fprintf(&graph, "%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s",
			prev, i, opts.FadeDuration, offset, out)
		if i != len(opts.Inputs)-1 {
			graph.WriteString(";")
		}
		prev = out
	}

	enc := opts.Encoder
	if enc.Name == "" {
		enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
	}

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[vout]",
		"-c:v", enc.Name,
	)
	args = append(args, enc.Params...)
	if opts.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%g", opts.FPS))
	}
	args = append(args, "-an", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("xfade concat")
		},
	}

	return e.Run(ctx, runOpts)
}

// createConcatFile generates a temporary file list for ffmpeg concat
func (e *Executor) createConcatFile(inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "clipforge-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", absPath); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}
