package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir string `yaml:"work_dir"`
	Workers int    `yaml:"workers"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Render settings
	Render RenderConfig `yaml:"render"`

	// Speech synthesis settings
	Speech SpeechConfig `yaml:"speech"`

	// Caption settings
	Captions CaptionConfig `yaml:"captions"`

	// Soundtrack settings
	Score ScoreConfig `yaml:"score"`

	// Perturbation bands
	Perturb PerturbConfig `yaml:"perturb"`

	// Multi-clip assembly settings
	Assemble AssembleConfig `yaml:"assemble"`
}

type FFmpegConfig struct {
	BinaryPath    string `yaml:"binary_path"`
	ProbePath     string `yaml:"probe_path"`
	Threads       int    `yaml:"threads"`
	Preset        string `yaml:"preset"`
	CRF           int    `yaml:"crf"`
	EncodeTimeout int    `yaml:"encode_timeout_sec"`
	MaxRetries    int    `yaml:"max_retries"`
}

type RenderConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FPS         int     `yaml:"fps"`
	MaxDuration float64 `yaml:"max_duration_sec"`
}

type SpeechConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	Voice         string  `yaml:"voice"`
	Rate          string  `yaml:"rate"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	CallsPerMin   float64 `yaml:"calls_per_min"`
	PausePadding  bool    `yaml:"pause_padding"`
	TrailingQuiet float64 `yaml:"trailing_quiet_sec"`
}

type CaptionConfig struct {
	MaxChars     int     `yaml:"max_chars"`
	CommaChars   int     `yaml:"comma_chars"`
	MinDuration  float64 `yaml:"min_duration_sec"`
	TrailingPad  float64 `yaml:"trailing_pad_sec"`
	FinalPad     float64 `yaml:"final_pad_sec"`
	IntroWindow  float64 `yaml:"intro_window_sec"`
	FontName     string  `yaml:"font_name"`
	FontSize     int     `yaml:"font_size"`
	FontColor    string  `yaml:"font_color"`
	OutlineWidth int     `yaml:"outline_width"`
	MarginV      int     `yaml:"margin_v"`
}

type ScoreConfig struct {
	Genre   string  `yaml:"genre"`
	MinGain float64 `yaml:"min_gain"`
	MaxGain float64 `yaml:"max_gain"`
}

type PerturbConfig struct {
	ResizePctMin   float64 `yaml:"resize_pct_min"`
	ResizePctMax   float64 `yaml:"resize_pct_max"`
	CropMin        float64 `yaml:"crop_min"`
	CropMax        float64 `yaml:"crop_max"`
	SpeedMin       float64 `yaml:"speed_min"`
	SpeedMax       float64 `yaml:"speed_max"`
	NoiseSigmaMin  float64 `yaml:"noise_sigma_min"`
	NoiseSigmaMax  float64 `yaml:"noise_sigma_max"`
	ColorDeltaMax  float64 `yaml:"color_delta_max"`
	MirrorChance   float64 `yaml:"mirror_chance"`
}

type AssembleConfig struct {
	CrossfadeMin float64 `yaml:"crossfade_min_sec"`
	CrossfadeMax float64 `yaml:"crossfade_max_sec"`
	Workers      int     `yaml:"workers"`
}

// Load reads configuration from file or returns defaults. A .env file in
// the working directory and CLIPFORGE_* environment variables override
// file values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLIPFORGE_FFMPEG"); v != "" {
		cfg.FFmpeg.BinaryPath = v
	}
	if v := os.Getenv("CLIPFORGE_FFPROBE"); v != "" {
		cfg.FFmpeg.ProbePath = v
	}
	if v := os.Getenv("CLIPFORGE_WORKDIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("CLIPFORGE_SPEECH_ENDPOINT"); v != "" {
		cfg.Speech.Endpoint = v
	}
	if v := os.Getenv("CLIPFORGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		Workers: 2,
		FFmpeg: FFmpegConfig{
			BinaryPath:    "ffmpeg",
			ProbePath:     "ffprobe",
			Threads:       0,
			Preset:        "medium",
			CRF:           23,
			EncodeTimeout: 600,
			MaxRetries:    2,
		},
		Render: RenderConfig{
			Width:       1080,
			Height:      1920,
			FPS:         30,
			MaxDuration: 59,
		},
		Speech: SpeechConfig{
			Voice:         "ko-female",
			Rate:          "+0%",
			TimeoutSec:    60,
			CallsPerMin:   60,
			PausePadding:  false,
			TrailingQuiet: 1.5,
		},
		Captions: CaptionConfig{
			MaxChars:     15,
			CommaChars:   10,
			MinDuration:  0.5,
			TrailingPad:  0.1,
			FinalPad:     0.3,
			IntroWindow:  2.0,
			FontName:     "Noto Sans CJK KR",
			FontSize:     54,
			FontColor:    "&H00FFFFFF",
			OutlineWidth: 3,
			MarginV:      220,
		},
		Score: ScoreConfig{
			Genre:   "ambient",
			MinGain: 0.06,
			MaxGain: 0.10,
		},
		Perturb: PerturbConfig{
			ResizePctMin:  1.0,
			ResizePctMax:  2.0,
			CropMin:       0.03,
			CropMax:       0.06,
			SpeedMin:      1.05,
			SpeedMax:      1.2,
			NoiseSigmaMin: 2.0,
			NoiseSigmaMax: 6.0,
			ColorDeltaMax: 0.05,
			MirrorChance:  0.5,
		},
		Assemble: AssembleConfig{
			CrossfadeMin: 0.3,
			CrossfadeMax: 0.4,
			Workers:      2,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".clipforge", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
