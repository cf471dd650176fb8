package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/minho-kw/clipforge/pkg/util"
)

// ApplyChain re-encodes input through a filter chain.
func (e *Executor) ApplyChain(ctx context.Context, input, output string, chain Chain, enc EncoderProfile, noAudio bool, progressFunc ProgressFunc) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Int("stages", len(chain)).
		Msg("applying filter chain")

	args := []string{"-i", input}

	if vf := chain.Render(); vf != "" {
		args = append(args, "-vf", vf)
	}

	if enc.Name == "" {
		enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
	}
	args = append(args, "-c:v", enc.Name)
	args = append(args, enc.Params...)

	if noAudio {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", DefaultAudioCodec)
	}

	args = append(args, output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("chain render")
		},
	}

	if err := e.RunRetry(ctx, runOpts); err != nil {
		return fmt.Errorf("filter chain render failed: %w", err)
	}

	return nil
}

// EncodeFrames turns a numbered still-frame sequence into a video.
// Pattern is an image2 pattern like dir/frame_%05d.png.
func (e *Executor) EncodeFrames(ctx context.Context, pattern string, fps float64, enc EncoderProfile, output string, progressFunc ProgressFunc) error {
	if pattern == "" {
		return fmt.Errorf("frame pattern is required")
	}
	if fps <= 0 {
		fps = 30
	}

	e.logger.Info().
		Str("pattern", pattern).
		Float64("fps", fps).
		Str("output", output).
		Msg("encoding frame sequence")

	if enc.Name == "" {
		enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
	}

	args := []string{
		"-framerate", fmt.Sprintf("%g", fps),
		"-i", pattern,
		"-c:v", enc.Name,
	}
	args = append(args, enc.Params...)
	args = append(args, "-pix_fmt", "yuv420p", "-an", output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame encode")
		},
	}

	if err := e.RunRetry(ctx, runOpts); err != nil {
		return fmt.Errorf("frame sequence encode failed: %w", err)
	}

	return nil
}

// ComposeOptions configures the final mux: video through the caption
// chain, mixed audio mapped in, duration capped.
type ComposeOptions struct {
	VideoInput   string
	AudioInput   string
	Output       string
	Chain        Chain
	Encoder      EncoderProfile
	MaxDuration  float64
	FPS          float64
	ProgressFunc ProgressFunc
}

// Compose performs the final render: caption burn-in plus audio mux.
func (e *Executor) Compose(ctx context.Context, opts ComposeOptions) error {
	if opts.VideoInput == "" || opts.Output == "" {
		return fmt.Errorf("video input and output paths are required")
	}

	e.logger.Info().
		Str("video", opts.VideoInput).
		Str("audio", opts.AudioInput).
		Str("output", opts.Output).
		Msg("composing final render")

	args := []string{"-i", opts.VideoInput}
	if opts.AudioInput != "" {
		args = append(args, "-i", opts.AudioInput)
	}

	if vf := opts.Chain.Render(); vf != "" {
		args = append(args, "-vf", vf)
	}

	args = append(args, "-map", "0:v")
	if opts.AudioInput != "" {
		args = append(args, "-map", "1:a")
	}

	enc := opts.Encoder
	if enc.Name == "" {
		enc = EncoderProfile{Name: DefaultVideoCodec, Params: []string{"-preset", DefaultPreset, "-crf", fmt.Sprintf("%d", DefaultCRF)}}
	}
	args = append(args, "-c:v", enc.Name)
	args = append(args, enc.Params...)

	if opts.AudioInput != "" {
		args = append(args, "-c:a", DefaultAudioCodec, "-b:a", "192k")
	}

	if opts.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%g", opts.FPS))
	}
	if opts.MaxDuration > 0 {
		args = append(args, "-t", util.FormatSeconds(opts.MaxDuration))
	}

	args = append(args, "-movflags", "+faststart", opts.Output)

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("compose")
		},
	}

	if err := e.RunRetry(ctx, runOpts); err != nil {
		return fmt.Errorf("compose failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("compose completed")
	return nil
}

// escapeSubtitlePath escapes the subtitle file path for ffmpeg filters
func escapeSubtitlePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	// Windows: Convert backslashes to forward slashes
	if runtime.GOOS == "windows" {
		absPath = strings.ReplaceAll(absPath, "\\", "/")
		// Escape drive letter colon (C: -> C\:)
		if len(absPath) >= 2 && absPath[1] == ':' {
			absPath = absPath[0:1] + "\\:" + absPath[2:]
		}
	}

	escaped := strings.ReplaceAll(absPath, ":", "\\:")
	escaped = strings.ReplaceAll(escaped, "'", "\\'")

	return escaped
}
