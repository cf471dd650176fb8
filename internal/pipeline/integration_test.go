package pipeline_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minho-kw/clipforge/internal/config"
	"github.com/minho-kw/clipforge/internal/narrate"
	"github.com/minho-kw/clipforge/internal/pipeline"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed - install with: brew install ffmpeg")
	}
}

func secs(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// generateSourceVideo renders a short lavfi test clip to feed the pipeline.
func generateSourceVideo(t *testing.T, dir string, seconds float64) string {
	t.Helper()
	path := filepath.Join(dir, "source.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration="+secs(seconds)+":size=320x240:rate=30",
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
		path)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generate source video: %s", out)
	return path
}

// generateNarrationAudio renders a sine tone WAV and returns its raw bytes.
// The scripted synthesizer streams these as its audio chunks; ffmpeg sniffs
// the RIFF header regardless of the file name it lands under.
func generateNarrationAudio(t *testing.T, dir string, seconds float64) []byte {
	t.Helper()
	path := filepath.Join(dir, "tone.wav")
	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=330:duration="+secs(seconds),
		"-c:a", "pcm_s16le", "-ar", "44100", "-ac", "1",
		path)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generate narration audio: %s", out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// scriptedSynth replays a fixed audio payload and word boundary set,
// standing in for the network speech service.
type scriptedSynth struct {
	audio   []byte
	timings []narrate.WordTiming
}

func (s *scriptedSynth) Synthesize(ctx context.Context, text, voice, rate string) (<-chan narrate.Event, error) {
	ch := make(chan narrate.Event, len(s.timings)+2)
	half := len(s.audio) / 2
	ch <- narrate.Event{Kind: narrate.EventAudio, Audio: s.audio[:half]}
	for _, wt := range s.timings {
		ch <- narrate.Event{Kind: narrate.EventBoundary, Boundary: wt}
	}
	ch <- narrate.Event{Kind: narrate.EventAudio, Audio: s.audio[half:]}
	close(ch)
	return ch, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.WorkDir = t.TempDir()
	return cfg
}

func TestRunKoreanTwoSentences(t *testing.T) {
	skipIfNoFFmpeg(t)
	if testing.Short() {
		t.Skip("skipping end-to-end render in short mode")
	}

	cfg := testConfig(t)
	source := generateSourceVideo(t, cfg.WorkDir, 6)
	tone := generateNarrationAudio(t, cfg.WorkDir, 3)

	synth := &scriptedSynth{
		audio: tone,
		timings: []narrate.WordTiming{
			{Text: "안녕하세요", Start: 0.2, Duration: 0.6},
			{Text: "여러분.", Start: 0.9, Duration: 0.5},
			{Text: "오늘은", Start: 1.6, Duration: 0.4},
			{Text: "좋은", Start: 2.1, Duration: 0.3},
			{Text: "날입니다.", Start: 2.5, Duration: 0.4},
		},
	}

	p, err := pipeline.New(zerolog.Nop(), cfg, synth)
	require.NoError(t, err)

	output := filepath.Join(cfg.WorkDir, "final.mp4")
	res, err := p.Run(context.Background(), pipeline.Job{
		Source:      source,
		Script:      narrate.Script{"안녕하세요 여러분.", "오늘은 좋은 날입니다."},
		DurationCap: 8,
		Output:      output,
		Seed:        42,
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, output, res.Path)
	assert.FileExists(t, output)
	assert.False(t, res.Degraded)
	assert.Greater(t, res.Duration, 2.0)
	assert.LessOrEqual(t, res.Duration, 8.5)
	assert.GreaterOrEqual(t, res.CaptionCues, 2)
	assert.NotEmpty(t, res.Encoder)
	assert.Greater(t, res.FileSize, int64(0))

	// Success removes the job temp dir.
	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "job-")
	}
}

func TestRunNoEncoderFailsBeforeOutput(t *testing.T) {
	cfg := testConfig(t)
	// "false" exits nonzero for every invocation, so every encoder trial
	// fails before any output-side work can start.
	cfg.FFmpeg.BinaryPath = "false"
	cfg.FFmpeg.ProbePath = "false"
	cfg.FFmpeg.MaxRetries = 0

	source := filepath.Join(cfg.WorkDir, "source.mp4")
	require.NoError(t, os.WriteFile(source, []byte("not really a video"), 0o644))

	p, err := pipeline.New(zerolog.Nop(), cfg, &scriptedSynth{})
	require.NoError(t, err)

	output := filepath.Join(cfg.WorkDir, "final.mp4")
	_, err = p.Run(context.Background(), pipeline.Job{
		Source: source,
		Script: narrate.Script{"hello there."},
		Output: output,
		Seed:   1,
	})
	require.Error(t, err)

	var perr *pipeline.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, pipeline.KindEncodeUnavailable, perr.Kind)
	assert.NoFileExists(t, output)
}
