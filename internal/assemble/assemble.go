// Package assemble splices multiple source clips into one track:
// duration is partitioned across sources, each segment gets its own
// perturbation profile, and junctions are joined with cross-fades.
package assemble

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minho-kw/clipforge/internal/ffmpeg"
	"github.com/minho-kw/clipforge/internal/perturb"
)

// Options configures assembly.
type Options struct {
	TargetDuration float64
	CrossfadeMin   float64
	CrossfadeMax   float64
	Workers        int
	Width          int
	Height         int
	FPS            float64
}

// Allocation is one clip's slice of the target duration.
type Allocation struct {
	Index    int
	Source   string
	Start    float64
	Duration float64
}

// Result describes the assembled track.
type Result struct {
	Path      string
	Junctions int
	Fade      float64
	Durations []float64
}

// Assembler splices clips.
type Assembler struct {
	logger zerolog.Logger
	exec   *ffmpeg.Executor
	engine *perturb.Engine
	rng    *rand.Rand
	opts   Options
}

// New creates an assembler. The RNG drives start offsets and the fade
// length; thread a fixed seed for reproducible runs.
func New(logger zerolog.Logger, exec *ffmpeg.Executor, engine *perturb.Engine, rng *rand.Rand, opts Options) *Assembler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.CrossfadeMin <= 0 {
		opts.CrossfadeMin = 0.3
	}
	if opts.CrossfadeMax < opts.CrossfadeMin {
		opts.CrossfadeMax = opts.CrossfadeMin
	}
	return &Assembler{
		logger: logger.With().Str("component", "assemble").Logger(),
		exec:   exec,
		engine: engine,
		rng:    rng,
		opts:   opts,
	}
}

// PlanAllocations partitions the target equally across sources and
// picks a uniformly random start offset inside each one. Sources
// shorter than their slice start at zero and contribute what they have.
func PlanAllocations(rng *rand.Rand, target float64, sources []string, srcDurations []float64) ([]Allocation, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources to assemble")
	}
	if len(sources) != len(srcDurations) {
		return nil, fmt.Errorf("got %d sources but %d durations", len(sources), len(srcDurations))
	}
	if target <= 0 {
		return nil, fmt.Errorf("target duration must be positive, got %f", target)
	}

	slice := target / float64(len(sources))
	allocs := make([]Allocation, len(sources))
	for i, src := range sources {
		dur := slice
		start := 0.0
		if srcDurations[i] <= slice {
			dur = srcDurations[i]
		} else {
			start = rng.Float64() * (srcDurations[i] - slice)
		}
		allocs[i] = Allocation{Index: i, Source: src, Start: start, Duration: dur}
	}
	return allocs, nil
}

// Assemble cuts, perturbs, and splices the sources into dir. Per-clip
// encodes run in parallel up to the worker bound and are joined back in
// input order before concatenation.
func (a *Assembler) Assemble(ctx context.Context, sources []string, enc ffmpeg.EncoderProfile, dir string) (*Result, error) {
	srcDurations := make([]float64, len(sources))
	for i, src := range sources {
		info, err := a.exec.ProbeVideo(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("probe source %d: %w", i, err)
		}
		srcDurations[i] = info.Seconds()
	}

	allocs, err := PlanAllocations(a.rng, a.opts.TargetDuration, sources, srcDurations)
	if err != nil {
		return nil, err
	}

	// Profiles are sampled up front, on one goroutine, so the RNG
	// stays deterministic regardless of encode scheduling.
	profiles := make([]perturb.Profile, len(allocs))
	for i := range allocs {
		profiles[i] = a.engine.SampleProfileForIndex(i)
	}

	clipPaths := make([]string, len(allocs))
	clipDurations := make([]float64, len(allocs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, alloc := range allocs {
		i, alloc := i, alloc
		g.Go(func() error {
			out := filepath.Join(dir, fmt.Sprintf("clip_%02d.mp4", i))
			if err := a.cutClip(gctx, alloc, profiles[i], enc, out); err != nil {
				return fmt.Errorf("clip %d: %w", i, err)
			}
			clipPaths[i] = out
			// The clip chain never changes speed, so the rendered
			// duration is the allocated one.
			clipDurations[i] = alloc.Duration
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	output := filepath.Join(dir, "assembled.mp4")

	if len(clipPaths) == 1 {
		a.logger.Info().Msg("single source, no junctions")
		return &Result{Path: clipPaths[0], Durations: clipDurations}, nil
	}

	fade := a.opts.CrossfadeMin + a.rng.Float64()*(a.opts.CrossfadeMax-a.opts.CrossfadeMin)
	err = a.exec.ConcatXfade(ctx, ffmpeg.XfadeOptions{
		Inputs:       clipPaths,
		Durations:    clipDurations,
		FadeDuration: fade,
		Output:       output,
		Encoder:      enc,
		FPS:          a.opts.FPS,
	})
	if err != nil {
		// Hard cuts beat a dead job: fall back to the concat demuxer.
		a.logger.Warn().Err(err).Msg("cross-fade chain failed, falling back to hard cuts")
		if cerr := a.exec.Concat(ctx, ffmpeg.ConcatOptions{
			Inputs:   clipPaths,
			Output:   output,
			ReEncode: true,
			Encoder:  enc,
		}); cerr != nil {
			return nil, fmt.Errorf("concat fallback: %w", cerr)
		}
		fade = 0
	}

	a.logger.Info().
		Int("clips", len(clipPaths)).
		Int("junctions", len(clipPaths)-1).
		Float64("fade", fade).
		Msg("assembly complete")

	return &Result{
		Path:      output,
		Junctions: len(clipPaths) - 1,
		Fade:      fade,
		Durations: clipDurations,
	}, nil
}

// cutClip extracts one allocation through its perturbation chain with
// audio stripped. If the perturbed encode fails, the clip is re-cut
// with a plain scale so a cosmetic filter never kills the job.
func (a *Assembler) cutClip(ctx context.Context, alloc Allocation, p perturb.Profile, enc ffmpeg.EncoderProfile, out string) error {
	chain := p.ClipChain(a.opts.Width, a.opts.Height, a.opts.FPS)

	err := a.exec.ExtractClip(ctx, alloc.Source, ffmpeg.ClipOptions{
		Start:    alloc.Start,
		Duration: alloc.Duration,
		Output:   out,
		Chain:    chain,
		Encoder:  enc,
		NoAudio:  true,
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	a.logger.Warn().
		Err(err).
		Int("index", alloc.Index).
		Msg("perturbation chain failed, re-cutting plain")

	plain := ffmpeg.Chain{
		ffmpeg.CoverCrop{Width: a.opts.Width, Height: a.opts.Height},
		ffmpeg.FPS{Rate: a.opts.FPS},
	}
	return a.exec.ExtractClip(ctx, alloc.Source, ffmpeg.ClipOptions{
		Start:    alloc.Start,
		Duration: alloc.Duration,
		Output:   out,
		Chain:    plain,
		Encoder:  enc,
		NoAudio:  true,
	})
}
