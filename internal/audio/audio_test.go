package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.wav")

	in := make([]float64, 4410)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/44100)
	}

	if err := WriteWAV(path, in, 44100); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	out, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if rate != 44100 {
		t.Errorf("expected rate 44100, got %d", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}

	// 16-bit quantization allows 1/32768 of error per sample
	for i := range in {
		if diff := math.Abs(out[i] - in[i]); diff > 1.0/32000 {
			t.Fatalf("sample %d differs by %v", i, diff)
		}
	}
}

func TestWriteWAVClampsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clamped.wav")

	if err := WriteWAV(path, []float64{2.0, -3.0, 0.0}, 8000); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	out, _, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if out[0] < 0.99 || out[1] > -0.99 {
		t.Errorf("overflow samples not clamped: %v", out)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("definitely not a wav file at all"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReadWAV(path); err == nil {
		t.Error("ReadWAV should reject non-RIFF data")
	}
}

func TestReadWAVRejectsShortFmtChunk(t *testing.T) {
	// RIFF/WAVE container whose fmt chunk claims only 8 bytes.
	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = append(buf, 0, 0, 0, 0)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], 8)
	buf = append(buf, size[:]...)
	buf = append(buf, make([]byte, 8)...)

	path := filepath.Join(t.TempDir(), "shortfmt.wav")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReadWAV(path); err == nil {
		t.Error("ReadWAV should reject a truncated fmt chunk")
	}
}

func TestMixExactDuration(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 44100)

	tracks := []Track{
		{Name: "a", Samples: make([]float64, 1000), Gain: 1},
		{Name: "b", Samples: make([]float64, 500000), Gain: 0.08, Loop: true},
	}

	for _, dur := range []float64{1.0, 2.5, 37.31, 59.0} {
		out, err := m.Mix(tracks, dur)
		if err != nil {
			t.Fatalf("Mix(%v) failed: %v", dur, err)
		}
		want := int(math.Round(dur * 44100))
		if len(out) != want {
			t.Errorf("Mix(%v): expected %d samples, got %d", dur, want, len(out))
		}
	}
}

func TestMixOffsetAndSum(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 1000)

	// constant tracks make the sums easy to check
	ones := make([]float64, 500)
	for i := range ones {
		ones[i] = 0.5
	}

	tracks := []Track{
		{Name: "base", Samples: ones, Gain: 1},
		{Name: "late", Samples: ones, Gain: 0.5, Offset: 0.25},
	}

	out, err := m.Mix(tracks, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	// before the offset only the base track plays
	if out[100] != 0.5 {
		t.Errorf("sample 100 = %v, want 0.5", out[100])
	}
	// both overlap in [0.25, 0.5)
	if math.Abs(out[300]-0.75) > 1e-9 {
		t.Errorf("sample 300 = %v, want 0.75", out[300])
	}
	// base ended at 0.5, only the offset track remains until 0.75
	if math.Abs(out[600]-0.25) > 1e-9 {
		t.Errorf("sample 600 = %v, want 0.25", out[600])
	}
	// silence after both end
	if out[900] != 0 {
		t.Errorf("sample 900 = %v, want 0", out[900])
	}
}

func TestMixNegativeOffset(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 100)

	ones := make([]float64, 50)
	for i := range ones {
		ones[i] = 0.5
	}

	// Half the track sits before the timeline and is dropped; the rest
	// lands at the start of the output.
	out, err := m.Mix([]Track{{Name: "early", Samples: ones, Gain: 1, Offset: -0.25}}, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	if out[0] != 0.5 || out[24] != 0.5 {
		t.Errorf("leading samples = %v, %v, want 0.5", out[0], out[24])
	}
	if out[25] != 0 {
		t.Errorf("sample past track end = %v, want 0", out[25])
	}
}

func TestMixLoopWraps(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 100)

	pattern := []float64{0.1, 0.2, 0.3, 0.4}
	out, err := m.Mix([]Track{{Name: "loop", Samples: pattern, Gain: 1, Loop: true}}, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	for i, s := range out {
		want := pattern[i%len(pattern)]
		if math.Abs(s-want) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestMixClampsSum(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 100)

	loud := make([]float64, 100)
	for i := range loud {
		loud[i] = 0.9
	}

	out, err := m.Mix([]Track{
		{Name: "a", Samples: loud, Gain: 1},
		{Name: "b", Samples: loud, Gain: 1},
	}, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	for i, s := range out {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %v escaped [-1, 1]", i, s)
		}
	}
}

func TestMixRejectsZeroDuration(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 44100)
	if _, err := m.Mix(nil, 0); err == nil {
		t.Error("Mix with zero duration should fail")
	}
}

func TestMixToFile(t *testing.T) {
	m := NewMixer(zerolog.Nop(), 8000)
	path := filepath.Join(t.TempDir(), "mixed.wav")

	tone := make([]float64, 8000)
	for i := range tone {
		tone[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/8000)
	}

	if err := m.MixToFile([]Track{{Name: "tone", Samples: tone, Gain: 1}}, 2.0, path); err != nil {
		t.Fatalf("MixToFile failed: %v", err)
	}

	out, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if rate != 8000 {
		t.Errorf("expected rate 8000, got %d", rate)
	}
	if len(out) != 16000 {
		t.Errorf("expected 16000 samples, got %d", len(out))
	}
}
