package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// TestResults stores results from all tests for final summary
type TestResults struct {
	ExecutorPath string
	EncoderName  string
	ProbeResults *VideoInfo
	ClipCreated  bool
	VolumeStats  *VolumeStats
	Errors       []string
	TestDuration time.Duration
}

var globalResults = &TestResults{
	Errors: make([]string, 0),
}

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// generateTestVideo renders a short synthetic clip into dir and returns
// its path. Skips the test when generation fails.
func generateTestVideo(t *testing.T, dir string, seconds float64, withAudio bool) string {
	t.Helper()

	out := filepath.Join(dir, "test.mp4")
	args := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%.1f:size=320x240:rate=30", seconds),
	}
	if withAudio {
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=1000:duration=%.1f", seconds))
	}
	args = append(args, "-pix_fmt", "yuv420p", "-y", out)

	cmd := exec.Command("ffmpeg", args...)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test video: %v", err)
	}
	return out
}

func testExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, "", "", 2, 1)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	e, err := New(logger, "", "", 4, 1)
	if err != nil {
		globalResults.Errors = append(globalResults.Errors, fmt.Sprintf("Executor creation failed: %v", err))
		t.Fatalf("failed to create executor: %v", err)
	}
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}

	globalResults.ExecutorPath = e.ffmpegPath
	t.Logf("ffmpeg: %s", e.ffmpegPath)
	t.Logf("ffprobe: %s", e.ffprobePath)
}

func TestProbeVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	testVideoPath := generateTestVideo(t, t.TempDir(), 2, false)
	e := testExecutor(t)

	ctx := context.Background()
	start := time.Now()
	info, err := e.ProbeVideo(ctx, testVideoPath)
	elapsed := time.Since(start)

	if err != nil {
		globalResults.Errors = append(globalResults.Errors, fmt.Sprintf("ProbeVideo failed: %v", err))
		t.Fatalf("ProbeVideo failed: %v", err)
	}

	globalResults.ProbeResults = info
	globalResults.TestDuration = elapsed

	if info.Width != 320 {
		t.Errorf("expected width 320, got %d", info.Width)
	}
	if info.Height != 240 {
		t.Errorf("expected height 240, got %d", info.Height)
	}
	if info.Duration == 0 {
		t.Error("duration is zero")
	}

	t.Logf("Video info: %dx%d, %.2f fps, duration: %v (probed in %v)",
		info.Width, info.Height, info.FPS, info.Duration, elapsed)
}

func TestDetectEncoder(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	e.resetEncoderCache()

	ctx := context.Background()
	start := time.Now()
	enc, err := e.DetectEncoder(ctx)
	elapsed := time.Since(start)

	if err != nil {
		globalResults.Errors = append(globalResults.Errors, fmt.Sprintf("DetectEncoder failed: %v", err))
		t.Fatalf("DetectEncoder failed: %v", err)
	}
	if enc.Name == "" {
		t.Fatal("encoder name is empty")
	}

	globalResults.EncoderName = enc.Name
	t.Logf("Selected encoder: %s (hardware=%v) in %v", enc.Name, enc.Hardware, elapsed)

	// Second call must hit the cache, i.e. return without re-probing.
	start = time.Now()
	cached, err := e.DetectEncoder(ctx)
	if err != nil {
		t.Fatalf("cached DetectEncoder failed: %v", err)
	}
	if cached.Name != enc.Name {
		t.Errorf("cache returned %q, probe returned %q", cached.Name, enc.Name)
	}
	if since := time.Since(start); since > 50*time.Millisecond {
		t.Errorf("cached lookup took %v, expected near-instant", since)
	}
}

func TestExtractClip(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	testVideoPath := generateTestVideo(t, dir, 2, false)
	e := testExecutor(t)

	ctx := context.Background()
	outputPath := filepath.Join(dir, "clip_output.mp4")

	opts := ClipOptions{
		Start:    0.5,
		Duration: 1.0,
		Output:   outputPath,
		NoAudio:  true,
	}

	start := time.Now()
	err := e.ExtractClip(ctx, testVideoPath, opts)
	elapsed := time.Since(start)

	if err != nil {
		globalResults.Errors = append(globalResults.Errors,
			fmt.Sprintf("ExtractClip failed: %v", err))
		t.Fatalf("ExtractClip failed: %v", err)
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		globalResults.ClipCreated = false
		t.Fatalf("output file was not created: %v", err)
	}

	info, err := e.ProbeVideo(ctx, outputPath)
	if err != nil {
		t.Fatalf("failed to probe clip: %v", err)
	}
	if info.Seconds() < 0.8 || info.Seconds() > 1.3 {
		t.Errorf("expected ~1s clip, got %.2fs", info.Seconds())
	}

	globalResults.ClipCreated = true
	t.Logf("Clip created: %s (size: %d bytes, took %v)",
		outputPath, stat.Size(), elapsed)
}

func TestStageRendering(t *testing.T) {
	cases := []struct {
		name  string
		stage Stage
		want  string
	}{
		{"scale", Scale{Width: 1920, Height: 1080}, "scale=1920:1080"},
		{"scale flags", Scale{Width: 1080, Height: 1920, Flags: "lanczos"}, "scale=1080:1920:flags=lanczos"},
		{"scale empty", Scale{}, ""},
		{"edge crop", EdgeCrop{Fraction: 0.015}, "crop=iw*0.9700:ih*0.9700:iw*0.0150:ih*0.0150"},
		{"edge crop zero", EdgeCrop{}, ""},
		{"setpts", SetPTS{Speed: 1.1}, "setpts=PTS/1.1000"},
		{"setpts unity", SetPTS{Speed: 1}, ""},
		{"hflip", HFlip{}, "hflip"},
		{"eq", Eq{Brightness: 0.03, Contrast: 0.02, Saturation: -0.04}, "eq=brightness=0.0300:contrast=1.0200:saturation=0.9600"},
		{"eq zero", Eq{}, ""},
		{"noise", Noise{Strength: 4}, "noise=alls=4:allf=t"},
		{"fps", FPS{Rate: 30}, "fps=30"},
		{"fade out", Fade{Out: true, Start: 10, Duration: 0.8}, "fade=t=out:st=10.000:d=0.800"},
		{"raw", Raw("tblend=all_mode=average"), "tblend=all_mode=average"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stage.Render(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestChainRendering(t *testing.T) {
	chain := Chain{
		EdgeCrop{Fraction: 0.01},
		SetPTS{Speed: 1},               // unity speed renders empty
		Eq{Brightness: 0.02},
		HFlip{},
		FPS{Rate: 30},
	}

	got := chain.Render()
	want := "crop=iw*0.9800:ih*0.9800:iw*0.0100:ih*0.0100,eq=brightness=0.0200:contrast=1.0000:saturation=1.0000,hflip,fps=30"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestChainRenderingEmpty(t *testing.T) {
	var chain Chain
	if got := chain.Render(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}

	chain = Chain{SetPTS{Speed: 1}, Eq{}}
	if got := chain.Render(); got != "" {
		t.Errorf("expected empty string from all-empty stages, got %q", got)
	}
}

func TestAnalyzeVolume(t *testing.T) {
	skipIfNoFFmpeg(t)

	testVideoPath := generateTestVideo(t, t.TempDir(), 2, true)
	e := testExecutor(t)

	ctx := context.Background()
	start := time.Now()
	stats, err := e.AnalyzeVolume(ctx, testVideoPath)
	elapsed := time.Since(start)

	if err != nil {
		globalResults.Errors = append(globalResults.Errors, fmt.Sprintf("AnalyzeVolume failed: %v", err))
		t.Fatalf("AnalyzeVolume failed: %v", err)
	}

	globalResults.VolumeStats = stats

	t.Logf("Volume analysis completed in %v:", elapsed)
	t.Logf("  Mean: %.2f dB", stats.MeanVolume)
	t.Logf("  Max: %.2f dB", stats.MaxVolume)

	if stats.MeanVolume < -100 {
		t.Error("Mean volume suspiciously low")
	}
	if stats.EffectivelySilent() {
		t.Error("sine tone should not register as silent")
	}
}

func TestConcatValidation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	opts := ConcatOptions{
		Inputs: []string{"nonexistent1.mp4", "nonexistent2.mp4"},
		Output: filepath.Join(t.TempDir(), "output.mp4"),
	}

	err := e.Concat(ctx, opts)
	if err == nil {
		t.Error("Concat with non-existent files should fail")
	}
	t.Logf("Concat with non-existent files returned: %v", err)
}

func TestConcatXfadeValidation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	err := e.ConcatXfade(ctx, XfadeOptions{
		Inputs:       []string{"only_one.mp4"},
		Durations:    []float64{5},
		FadeDuration: 0.3,
		Output:       "out.mp4",
	})
	if err == nil {
		t.Error("ConcatXfade with a single input should fail")
	}

	err = e.ConcatXfade(ctx, XfadeOptions{
		Inputs:       []string{"a.mp4", "b.mp4"},
		Durations:    []float64{5},
		FadeDuration: 0.3,
		Output:       "out.mp4",
	})
	if err == nil {
		t.Error("ConcatXfade with mismatched durations should fail")
	}
}

func TestProbeVideoInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := testExecutor(t)
	ctx := context.Background()

	_, err := e.ProbeVideo(ctx, "nonexistent.mp4")
	if err == nil {
		t.Error("ProbeVideo should fail for non-existent file")
	}
	t.Logf("Error (expected): %v", err)

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalidPath, []byte("not a video"), 0644)

	_, err = e.ProbeVideo(ctx, invalidPath)
	if err == nil {
		t.Error("ProbeVideo should fail for invalid video file")
	}
	t.Logf("Error (expected): %v", err)
}

// TestMain runs after all tests and prints summary
func TestMain(m *testing.M) {
	code := m.Run()

	// Print summary
	printTestSummary()

	os.Exit(code)
}

func printTestSummary() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🎬 TEST SUMMARY - FFmpeg Layer")
	fmt.Println(strings.Repeat("=", 80))

	if globalResults.ExecutorPath != "" {
		fmt.Printf("\n✓ FFmpeg Binary: %s\n", globalResults.ExecutorPath)
	}

	if globalResults.EncoderName != "" {
		fmt.Printf("✓ Encoder:       %s\n", globalResults.EncoderName)
	}

	if globalResults.ProbeResults != nil {
		fmt.Println("\n📹 VIDEO PROBE RESULTS:")
		fmt.Printf("  Resolution:    %dx%d @ %.2f fps\n",
			globalResults.ProbeResults.Width,
			globalResults.ProbeResults.Height,
			globalResults.ProbeResults.FPS)
		fmt.Printf("  Duration:      %v\n", globalResults.ProbeResults.Duration)
		fmt.Printf("  Video Codec:   %s\n", globalResults.ProbeResults.VideoCodec)
		fmt.Printf("  Probe Time:    %v\n", globalResults.TestDuration)
	}

	fmt.Println("\n🎬 PROCESSING RESULTS:")
	if globalResults.ClipCreated {
		fmt.Println("  ✓ Clip Extraction:  SUCCESS")
	} else {
		fmt.Println("  ✗ Clip Extraction:  FAILED")
	}

	if globalResults.VolumeStats != nil {
		fmt.Println("\n🔊 AUDIO ANALYSIS:")
		fmt.Printf("  Mean Volume:   %6.2f dB\n", globalResults.VolumeStats.MeanVolume)
		fmt.Printf("  Peak Volume:   %6.2f dB\n", globalResults.VolumeStats.MaxVolume)
	}

	if len(globalResults.Errors) > 0 {
		fmt.Println("\n❌ ERRORS ENCOUNTERED:")
		for i, err := range globalResults.Errors {
			fmt.Printf("  %d. %s\n", i+1, err)
		}
	} else {
		fmt.Println("\n✅ ALL TESTS PASSED - No critical errors")
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
}
