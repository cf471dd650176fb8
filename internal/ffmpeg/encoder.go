package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"golang.org/x/sync/singleflight"
)

var probeGroup singleflight.Group

// ErrNoEncoder is returned when no candidate survives a trial encode.
var ErrNoEncoder = fmt.Errorf("no usable h264 encoder found")

// DetectEncoder returns the first encoder candidate that passes a short
// trial encode. The result is cached on the executor; concurrent first
// callers share a single probe via singleflight.
func (e *Executor) DetectEncoder(ctx context.Context) (EncoderProfile, error) {
	e.encMu.Lock()
	if e.encoder != nil {
		enc := *e.encoder
		e.encMu.Unlock()
		return enc, nil
	}
	e.encMu.Unlock()

	v, err, _ := probeGroup.Do(e.ffmpegPath, func() (interface{}, error) {
		return e.probeEncoders(ctx)
	})
	if err != nil {
		return EncoderProfile{}, err
	}

	enc := v.(EncoderProfile)

	e.encMu.Lock()
	e.encoder = &enc
	e.encMu.Unlock()

	return enc, nil
}

func (e *Executor) probeEncoders(ctx context.Context) (EncoderProfile, error) {
	for _, cand := range EncoderCandidates {
		if err := e.trialEncode(ctx, cand.Name); err != nil {
			e.logger.Debug().
				Str("encoder", cand.Name).
				Err(err).
				Msg("trial encode failed")
			continue
		}
		e.logger.Info().
			Str("encoder", cand.Name).
			Bool("hardware", cand.Hardware).
			Msg("encoder selected")
		return cand, nil
	}
	return EncoderProfile{}, ErrNoEncoder
}

// trialEncode pushes ten synthetic frames through the named encoder. A
// listed encoder can still fail at runtime (driver missing, no device),
// so listing alone is not trusted.
func (e *Executor) trialEncode(ctx context.Context, name string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=c=black:s=256x256:d=1",
		"-frames:v", "10",
		"-c:v", name,
		"-f", "null", "-",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(out))
	}
	return nil
}

// resetEncoderCache clears the memoized probe result. Test hook.
func (e *Executor) resetEncoderCache() {
	e.encMu.Lock()
	e.encoder = nil
	e.encMu.Unlock()
	probeGroup.Forget(e.ffmpegPath)
}
