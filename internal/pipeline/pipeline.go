// Package pipeline orchestrates render jobs: narration, captions,
// soundtrack, perturbation, motion, assembly, and the final encode.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/minho-kw/clipforge/internal/assemble"
	"github.com/minho-kw/clipforge/internal/audio"
	"github.com/minho-kw/clipforge/internal/captions"
	"github.com/minho-kw/clipforge/internal/config"
	"github.com/minho-kw/clipforge/internal/ffmpeg"
	"github.com/minho-kw/clipforge/internal/motion"
	"github.com/minho-kw/clipforge/internal/narrate"
	"github.com/minho-kw/clipforge/internal/perturb"
	"github.com/minho-kw/clipforge/internal/score"
	"github.com/minho-kw/clipforge/pkg/util"
)

const sourceBedGain = 0.05

// Pipeline runs render jobs. The only process-wide shared mutable state
// is the executor's encoder cache; everything else is job-scoped.
type Pipeline struct {
	logger zerolog.Logger
	cfg    *config.Config
	exec   *ffmpeg.Executor
	synth  narrate.Synthesizer
}

// New creates a pipeline around an injected speech synthesizer.
func New(logger zerolog.Logger, cfg *config.Config, synth narrate.Synthesizer) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, cfg.FFmpeg.Threads, cfg.FFmpeg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		exec:   exec,
		synth:  synth,
	}, nil
}

// Executor exposes the shared ffmpeg executor (encoder cache included).
func (p *Pipeline) Executor() *ffmpeg.Executor { return p.exec }

// RunBatch runs jobs concurrently up to the configured worker bound.
// Results hold positionally; a failed job leaves a nil slot and the
// first error is returned after all jobs settle.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := p.Run(gctx, job)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	return results, g.Wait()
}

// Run executes one job end to end. On success the job temp directory
// is removed; on fatal failure it is preserved and referenced in the
// returned error.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if err := p.validate(job); err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	tmpDir := filepath.Join(p.cfg.WorkDir, "job-"+id)
	if err := util.EnsureDir(tmpDir); err != nil {
		return nil, newError(KindInput, "", err, "cannot create job temp dir")
	}

	output := job.Output
	if output == "" {
		output = filepath.Join(p.cfg.WorkDir, id+".mp4")
	}

	logger := p.logger.With().Str("job", id).Logger()
	logger.Info().
		Str("output", output).
		Int("sentences", len(job.Script)).
		Msg("job started")

	res, err := p.run(ctx, logger, job, id, tmpDir, output)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled jobs leave nothing behind.
			os.RemoveAll(tmpDir)
			os.Remove(output)
			return nil, err
		}
		logger.Error().Err(err).Str("artifacts", tmpDir).Msg("job failed, temp dir preserved")
		return nil, err
	}

	os.RemoveAll(tmpDir)
	logger.Info().
		Float64("duration", res.Duration).
		Int64("size", res.FileSize).
		Str("encoder", res.Encoder).
		Msg("job complete")
	return res, nil
}

// Wash runs only the fingerprint launder pass over an existing video.
// Audio is dropped: a speed change would desync it, and washed clips
// get fresh narration downstream anyway.
func (p *Pipeline) Wash(ctx context.Context, input, output string, seed int64) error {
	if !util.FileExists(input) {
		return newError(KindInput, "", nil, "source not readable: %s", input)
	}

	enc, err := p.exec.DetectEncoder(ctx)
	if err != nil {
		return newError(KindEncodeUnavailable, "", err, "no usable encoder on host")
	}

	info, err := p.exec.ProbeVideo(ctx, input)
	if err != nil {
		return newError(KindInput, "", err, "source video unreadable")
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := perturb.NewEngine(p.logger, bandsFromConfig(p.cfg.Perturb), seed)
	profile := engine.SampleProfile()
	chain := engine.WashChain(profile, info.Width, info.Height, float64(p.cfg.Render.FPS))

	if err := p.exec.ApplyChain(ctx, input, output, chain, enc, true, nil); err != nil {
		return newError(KindEncodeFailed, "", err, "wash encode failed")
	}

	p.logger.Info().
		Str("input", input).
		Str("output", output).
		Float64("speed", profile.SpeedFactor).
		Bool("mirror", profile.Mirror).
		Msg("wash complete")
	return nil
}

func (p *Pipeline) validate(job Job) error {
	if err := job.Script.Validate(); err != nil {
		return newError(KindInput, "", err, "invalid narration script")
	}
	sources := job.Sources
	if job.Source != "" {
		sources = append([]string{job.Source}, sources...)
	}
	if len(sources) == 0 {
		return newError(KindInput, "", nil, "no source media given")
	}
	for _, src := range sources {
		if !util.FileExists(src) {
			return newError(KindInput, "", nil, "source not readable: %s", src)
		}
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, logger zerolog.Logger, job Job, id, tmpDir, output string) (*Result, error) {
	var warnings []string

	// Encoder probing comes first: with no usable encoder the job must
	// fail before any output-side work happens.
	enc, err := p.exec.DetectEncoder(ctx)
	if err != nil {
		return nil, newError(KindEncodeUnavailable, "", err, "no usable encoder on host")
	}

	seed := job.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Narration first: its measured duration drives every later stage.
	prober := func(ctx context.Context, path string) (float64, error) {
		info, err := p.exec.ProbeVideo(ctx, path)
		if err != nil {
			return 0, err
		}
		return info.Seconds(), nil
	}
	sync := narrate.NewSynchronizer(logger, p.synth, prober,
		time.Duration(p.cfg.Speech.TimeoutSec)*time.Second)
	sync.SetPausePadding(job.Style.PausePadding)

	voice := job.Style.Voice
	if voice == "" {
		voice = p.cfg.Speech.Voice
	}
	narration, err := sync.Narrate(ctx, job.Script, voice, speechRate(job.Style.SpeechRate, p.cfg), tmpDir)
	if err != nil {
		return nil, newError(KindInput, tmpDir, err, "narration synthesis failed")
	}
	if narration.Degraded {
		warnings = append(warnings, string(KindSynthesisDegraded))
	}

	introWindow := 0.0
	if len(job.Style.IntroLines) > 0 {
		introWindow = p.cfg.Captions.IntroWindow
	}

	maxDur := job.DurationCap
	if maxDur <= 0 || maxDur > p.cfg.Render.MaxDuration {
		maxDur = p.cfg.Render.MaxDuration
	}
	target := introWindow + narration.Duration + p.cfg.Speech.TrailingQuiet
	if target > maxDur {
		target = maxDur
	}

	// Video track.
	video, videoWarnings, err := p.buildVideo(ctx, logger, job, rng, enc, tmpDir, &target)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, videoWarnings...)

	// Captions.
	cueCount, assPath, err := p.buildCaptions(logger, job, narration, introWindow, tmpDir)
	if err != nil {
		return nil, newError(KindInput, tmpDir, err, "caption build failed")
	}

	// Audio: soundtrack, narration, optional source bed, mixed to the
	// exact target duration.
	mixedPath, err := p.mixAudio(ctx, logger, job, rng, narration, video, introWindow, target, seed, tmpDir)
	if err != nil {
		return nil, newError(KindEncodeFailed, tmpDir, err, "audio mix failed")
	}

	// Final compose with an explicit encode timeout.
	encCtx := ctx
	if p.cfg.FFmpeg.EncodeTimeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.FFmpeg.EncodeTimeout)*time.Second)
		defer cancel()
	}

	chain := ffmpeg.Chain{
		ffmpeg.CoverCrop{Width: p.cfg.Render.Width, Height: p.cfg.Render.Height},
		ffmpeg.Subtitles{Path: assPath},
	}
	err = p.exec.Compose(encCtx, ffmpeg.ComposeOptions{
		VideoInput:  video.path,
		AudioInput:  mixedPath,
		Output:      output,
		Chain:       chain,
		Encoder:     enc,
		MaxDuration: target,
		FPS:         float64(p.cfg.Render.FPS),
	})
	if err != nil {
		os.Remove(output)
		return nil, newError(KindEncodeFailed, tmpDir, err, "final encode failed")
	}

	info, err := p.exec.ProbeVideo(ctx, output)
	if err != nil || info.Seconds() <= 0 {
		os.Remove(output)
		return nil, newError(KindEncodeFailed, tmpDir, err, "final output missing or unreadable")
	}

	return &Result{
		Path:        output,
		Duration:    info.Seconds(),
		FileSize:    util.FileSize(output),
		CaptionCues: cueCount,
		Encoder:     enc.Name,
		Degraded:    narration.Degraded,
		Warnings:    warnings,
	}, nil
}

// videoTrack is the silent video input to the final compose.
type videoTrack struct {
	path     string
	info     *ffmpeg.VideoInfo // source probe for single-video jobs
	hasAudio bool
}

// buildVideo produces the video track: motion render for stills, wash
// or perturbation for single videos, assembly for multi-clip jobs. It
// may shrink target when the source cannot fill it.
func (p *Pipeline) buildVideo(ctx context.Context, logger zerolog.Logger, job Job, rng *rand.Rand, enc ffmpeg.EncoderProfile, tmpDir string, target *float64) (*videoTrack, []string, error) {
	bands := bandsFromConfig(p.cfg.Perturb)
	engine := perturb.NewEngine(logger, bands, rng.Int63())

	switch {
	case len(job.Sources) > 1:
		asm := assemble.New(logger, p.exec, engine, rng, assemble.Options{
			TargetDuration: *target,
			CrossfadeMin:   p.cfg.Assemble.CrossfadeMin,
			CrossfadeMax:   p.cfg.Assemble.CrossfadeMax,
			Workers:        p.cfg.Assemble.Workers,
			Width:          p.cfg.Render.Width,
			Height:         p.cfg.Render.Height,
			FPS:            float64(p.cfg.Render.FPS),
		})
		res, err := asm.Assemble(ctx, job.Sources, enc, tmpDir)
		if err != nil {
			return nil, nil, newError(KindEncodeFailed, tmpDir, err, "clip assembly failed")
		}
		return &videoTrack{path: res.Path}, nil, nil

	case isImage(job.Source):
		return p.buildMotionVideo(ctx, logger, job, enc, tmpDir, *target)

	default:
		return p.buildWashedVideo(ctx, logger, job, engine, enc, tmpDir, target)
	}
}

func (p *Pipeline) buildMotionVideo(ctx context.Context, logger zerolog.Logger, job Job, enc ffmpeg.EncoderProfile, tmpDir string, target float64) (*videoTrack, []string, error) {
	img, err := perturb.LoadImage(job.Source)
	if err != nil {
		return nil, nil, newError(KindInput, tmpDir, err, "source image unreadable")
	}

	preset := job.Style.MotionPreset
	if preset == "" {
		preset = motion.ZoomIn
	}
	sim, err := motion.New(logger, preset, job.Style.MaxZoom)
	if err != nil {
		return nil, nil, newError(KindInput, tmpDir, err, "motion preset invalid")
	}

	frameDir := filepath.Join(tmpDir, "frames")
	if err := util.EnsureDir(frameDir); err != nil {
		return nil, nil, newError(KindEncodeFailed, tmpDir, err, "cannot create frame dir")
	}

	pattern, _, err := sim.RenderFrames(ctx, img, target, float64(p.cfg.Render.FPS),
		p.cfg.Render.Width, p.cfg.Render.Height, frameDir)
	if err != nil {
		return nil, nil, newError(KindEncodeFailed, tmpDir, err, "motion frame render failed")
	}

	out := filepath.Join(tmpDir, "motion.mp4")
	if err := p.exec.EncodeFrames(ctx, pattern, float64(p.cfg.Render.FPS), enc, out, nil); err != nil {
		return nil, nil, newError(KindEncodeFailed, tmpDir, err, "motion encode failed")
	}

	return &videoTrack{path: out}, nil, nil
}

func (p *Pipeline) buildWashedVideo(ctx context.Context, logger zerolog.Logger, job Job, engine *perturb.Engine, enc ffmpeg.EncoderProfile, tmpDir string, target *float64) (*videoTrack, []string, error) {
	info, err := p.exec.ProbeVideo(ctx, job.Source)
	if err != nil {
		return nil, nil, newError(KindInput, tmpDir, err, "source video unreadable")
	}

	profile := engine.SampleProfile()
	var chain ffmpeg.Chain
	if job.Style.Wash {
		chain = engine.WashChain(profile, info.Width, info.Height, float64(p.cfg.Render.FPS))
	} else {
		chain = profile.VideoChain(info.Width, info.Height, float64(p.cfg.Render.FPS))
	}

	// Speed shortens the track; downstream duration logic must see the
	// effective length before the final target is fixed.
	effective := info.Seconds() / profile.SpeedFactor
	if effective < *target {
		*target = effective
	}

	out := filepath.Join(tmpDir, "washed.mp4")
	var warnings []string
	if err := p.exec.ApplyChain(ctx, job.Source, out, chain, enc, true, nil); err != nil {
		if ctx.Err() != nil {
			return nil, nil, newError(KindEncodeFailed, tmpDir, err, "wash encode interrupted")
		}
		// Perturbation is cosmetic: fall back to the untouched source
		// rather than failing the job.
		logger.Warn().Err(err).Msg("perturbation chain failed, using source as-is")
		warnings = append(warnings, string(KindPerturbationSkipped))
		out = job.Source
		if info.Seconds() < *target {
			*target = info.Seconds()
		}
	}

	return &videoTrack{path: out, info: info, hasAudio: info.HasAudio}, warnings, nil
}

// buildCaptions writes the ASS (burned in) and SRT (artifact) files and
// returns the cue count.
func (p *Pipeline) buildCaptions(logger zerolog.Logger, job Job, narration *narrate.Result, introWindow float64, tmpDir string) (int, string, error) {
	builder := captions.NewBuilder(logger, captions.Options{
		MaxChars:    p.cfg.Captions.MaxChars,
		CommaChars:  p.cfg.Captions.CommaChars,
		MinDuration: p.cfg.Captions.MinDuration,
		TrailingPad: p.cfg.Captions.TrailingPad,
		FinalPad:    p.cfg.Captions.FinalPad,
	})

	var body []captions.Cue
	if narration.Degraded {
		body = builder.BuildFallback(job.Script, narration.Duration, 0)
	} else {
		body = builder.Build(narration.Timings)
	}
	body = captions.Shift(body, introWindow)

	cues := builder.BuildIntro(job.Style.IntroLines, introWindow)
	cues = append(cues, body...)

	style := captions.Style{
		FontName:     p.cfg.Captions.FontName,
		FontSize:     p.cfg.Captions.FontSize,
		PrimaryColor: p.cfg.Captions.FontColor,
		OutlineWidth: p.cfg.Captions.OutlineWidth,
		MarginV:      p.cfg.Captions.MarginV,
		PlayResX:     p.cfg.Render.Width,
		PlayResY:     p.cfg.Render.Height,
	}

	assPath := filepath.Join(tmpDir, "captions.ass")
	if err := captions.WriteASS(assPath, cues, style); err != nil {
		return 0, "", err
	}
	if err := captions.WriteSRT(filepath.Join(tmpDir, "captions.srt"), cues); err != nil {
		return 0, "", err
	}

	return len(cues), assPath, nil
}

// mixAudio sums narration, soundtrack, and the optional source bed
// into one track of exactly the target duration.
func (p *Pipeline) mixAudio(ctx context.Context, logger zerolog.Logger, job Job, rng *rand.Rand, narration *narrate.Result, video *videoTrack, introWindow, target float64, seed int64, tmpDir string) (string, error) {
	genre := job.Style.Genre
	if genre == "" {
		genre = p.cfg.Score.Genre
	}
	synth := score.New(logger, genre, seed)
	scoreSamples, err := synth.Render(target)
	if err != nil {
		return "", fmt.Errorf("score synthesis: %w", err)
	}

	format := ffmpeg.MixFormat(score.SampleRate)

	narrationWAV := filepath.Join(tmpDir, "narration.wav")
	if err := p.exec.DecodeAudio(ctx, narration.AudioPath, narrationWAV, format); err != nil {
		return "", fmt.Errorf("decode narration: %w", err)
	}
	narrationSamples, _, err := audio.ReadWAV(narrationWAV)
	if err != nil {
		return "", fmt.Errorf("read narration: %w", err)
	}

	scoreGain := p.cfg.Score.MinGain +
		rng.Float64()*(p.cfg.Score.MaxGain-p.cfg.Score.MinGain)

	tracks := []audio.Track{
		{Name: "narration", Samples: narrationSamples, Gain: 1.0, Offset: introWindow},
		{Name: "score", Samples: scoreSamples, Gain: scoreGain, Loop: true},
	}

	if job.Style.KeepSourceAudio && video.hasAudio {
		stats, verr := p.exec.AnalyzeVolume(ctx, job.Source)
		if verr == nil && !stats.EffectivelySilent() {
			bedWAV := filepath.Join(tmpDir, "bed.wav")
			if err := p.exec.DecodeAudio(ctx, job.Source, bedWAV, format); err == nil {
				if bed, _, rerr := audio.ReadWAV(bedWAV); rerr == nil {
					tracks = append(tracks, audio.Track{Name: "bed", Samples: bed, Gain: sourceBedGain})
				}
			}
		}
	}

	mixer := audio.NewMixer(logger, score.SampleRate)
	mixedPath := filepath.Join(tmpDir, "mixed.wav")
	if err := mixer.MixToFile(tracks, target, mixedPath); err != nil {
		return "", err
	}
	return mixedPath, nil
}

func bandsFromConfig(c config.PerturbConfig) perturb.Bands {
	b := perturb.Bands{
		ResizePctMin:  c.ResizePctMin,
		ResizePctMax:  c.ResizePctMax,
		CropMin:       c.CropMin,
		CropMax:       c.CropMax,
		SpeedMin:      c.SpeedMin,
		SpeedMax:      c.SpeedMax,
		NoiseSigmaMin: c.NoiseSigmaMin,
		NoiseSigmaMax: c.NoiseSigmaMax,
		ColorDeltaMax: c.ColorDeltaMax,
		MirrorChance:  c.MirrorChance,
	}
	if b.SpeedMax == 0 {
		b = perturb.DefaultBands()
	}
	return b
}

func speechRate(style string, cfg *config.Config) string {
	if style != "" {
		return style
	}
	return cfg.Speech.Rate
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp":
		return true
	}
	return false
}
