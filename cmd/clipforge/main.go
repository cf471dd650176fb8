package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minho-kw/clipforge/internal/config"
	"github.com/minho-kw/clipforge/internal/ffmpeg"
	"github.com/minho-kw/clipforge/internal/logging"
	"github.com/minho-kw/clipforge/internal/motion"
	"github.com/minho-kw/clipforge/internal/narrate"
	"github.com/minho-kw/clipforge/internal/pipeline"
	"github.com/minho-kw/clipforge/internal/score"
	"github.com/minho-kw/clipforge/pkg/util"
)

var (
	cfgFile  string
	logLevel string
	workDir  string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "clipforge - short-form vertical video synthesis",
	Long:  "Synthesizes short-form vertical clips: narration, synced captions, procedural soundtrack, and fingerprint perturbation in one pass.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logLevel)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if workDir != "" {
			cfg.WorkDir = workDir
		}
		if err := util.EnsureDir(cfg.WorkDir); err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "working directory for outputs and job temp dirs")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(washCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(probeCmd)
}

var (
	scriptLines []string
	introLines  []string
	voice       string
	genre       string
	preset      string
	durationCap float64
	output      string
	seed        int64
	keepAudio   bool
)

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, assembleCmd} {
		cmd.Flags().StringArrayVarP(&scriptLines, "say", "s", nil, "narration sentence (repeatable, in order)")
		cmd.Flags().StringArrayVar(&introLines, "intro", nil, "intro title line (repeatable, up to 3)")
		cmd.Flags().StringVar(&voice, "voice", "", "voice id or short name (ko-female, en-male, ...)")
		cmd.Flags().StringVar(&genre, "genre", "", "soundtrack genre")
		cmd.Flags().Float64Var(&durationCap, "max-duration", 0, "duration cap in seconds")
		cmd.Flags().StringVarP(&output, "output", "o", "", "output file path")
		cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for reproducible perturbation")
	}
	renderCmd.Flags().StringVar(&preset, "motion", "", "motion preset for still-image sources")
	renderCmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "mix the source's own audio in as a low bed")
}

var renderCmd = &cobra.Command{
	Use:   "render [source media]",
	Short: "Render a narrated short from one image or video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job := pipeline.Job{
			Source:      args[0],
			Script:      narrate.Script(scriptLines),
			DurationCap: durationCap,
			Output:      output,
			Seed:        seed,
			Style: pipeline.StyleProfile{
				Voice:           voice,
				Genre:           genre,
				MotionPreset:    motion.Preset(preset),
				IntroLines:      introLines,
				KeepSourceAudio: keepAudio,
			},
		}
		return runJob(cmd, job)
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble [source videos...]",
	Short: "Render a narrated short spliced from multiple videos",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job := pipeline.Job{
			Sources:     args,
			Script:      narrate.Script(scriptLines),
			DurationCap: durationCap,
			Output:      output,
			Seed:        seed,
			Style: pipeline.StyleProfile{
				Voice:      voice,
				Genre:      genre,
				IntroLines: introLines,
			},
		}
		return runJob(cmd, job)
	},
}

func runJob(cmd *cobra.Command, job pipeline.Job) error {
	cfg := config.FromContext(cmd.Context())

	synth := narrate.NewEdgeSynthesizer(log.Logger, cfg.Speech.Endpoint, cfg.Speech.CallsPerMin)
	pipe, err := pipeline.New(log.Logger, cfg, synth)
	if err != nil {
		return err
	}

	res, err := pipe.Run(cmd.Context(), job)
	if err != nil {
		if je, ok := pipeline.AsError(err); ok && je.Artifact != "" {
			log.Error().Str("kind", string(je.Kind)).Str("artifacts", je.Artifact).Msg(je.Message)
		}
		return err
	}

	log.Info().
		Str("path", res.Path).
		Float64("duration", res.Duration).
		Int("caption_cues", res.CaptionCues).
		Str("encoder", res.Encoder).
		Msg("render complete")
	if len(res.Warnings) > 0 {
		log.Warn().Strs("warnings", res.Warnings).Msg("job degraded")
	}
	return nil
}

var washSeed int64

var washCmd = &cobra.Command{
	Use:   "wash [video] [output]",
	Short: "Run the fingerprint launder pass over an existing video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		synth := narrate.NewEdgeSynthesizer(log.Logger, cfg.Speech.Endpoint, cfg.Speech.CallsPerMin)
		pipe, err := pipeline.New(log.Logger, cfg, synth)
		if err != nil {
			return err
		}

		return pipe.Wash(cmd.Context(), args[0], args[1], washSeed)
	},
}

func init() {
	washCmd.Flags().Int64Var(&washSeed, "seed", 0, "RNG seed for reproducible perturbation")
}

var (
	scoreDuration float64
	scoreGenre    string
	scoreSeed     int64
)

var scoreCmd = &cobra.Command{
	Use:   "score [output.wav]",
	Short: "Generate a standalone procedural soundtrack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		synth := score.New(log.Logger, scoreGenre, scoreSeed)
		return synth.RenderToFile(scoreDuration, args[0])
	},
}

func init() {
	scoreCmd.Flags().Float64Var(&scoreDuration, "duration", 30, "duration in seconds")
	scoreCmd.Flags().StringVar(&scoreGenre, "genre", "ambient", "genre preset")
	scoreCmd.Flags().Int64Var(&scoreSeed, "seed", 1, "synthesis seed")
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report which encoder a render would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, cfg.FFmpeg.Threads, cfg.FFmpeg.MaxRetries)
		if err != nil {
			return err
		}

		enc, err := exec.DetectEncoder(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("encoder: %s (hardware: %v)\nparams: %s\n",
			enc.Name, enc.Hardware, strings.Join(enc.Params, " "))
		return nil
	},
}
