package ffmpeg

import (
	"context"
	"fmt"

	"github.com/minho-kw/clipforge/pkg/util"
)

// ClipOptions defines clip extraction parameters
type ClipOptions struct {
	Start        float64 // seconds into the source
	Duration     float64 // seconds to keep
	Output       string
	Chain        Chain // optional filter chain applied during the cut
	Encoder      EncoderProfile
	NoAudio      bool
	FPS          float64
	ProgressFunc ProgressFunc
}

// ExtractClip cuts a segment from a video, optionally running it through
// a filter chain in the same pass. Seeking happens input-side so the cut
// is fast even deep into long sources.
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid clip duration: %f", opts.Duration)
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Float64("start", opts.Start).
		Float64("duration", opts.Duration).
		Msg("extracting clip")

	args := []string{
		"-ss", util.FormatSeconds(opts.Start),
		"-i", input,
		"-t", util.FormatSeconds(opts.Duration),
	}

	if vf := opts.Chain.Render(); vf != "" {
		args = append(args, "-vf", vf)
	}

	enc := opts.Encoder
	if enc.Name == "" {
		enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
	}
	args = append(args, "-c:v", enc.Name)
	args = append(args, enc.Params...)

	if opts.NoAudio {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", DefaultAudioCodec)
	}

	if opts.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%g", opts.FPS))
	}

	args = append(args, opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.RunRetry(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	return nil
}
