package score

// GenreParams tunes the synthesizer voices for one named genre.
type GenreParams struct {
	BPM       float64
	BassRoot  float64   // bass root frequency in Hz
	PadFreqs  []float64 // pad partial frequencies in Hz
	KickGain  float64
	HihatGain float64
	BassGain  float64
	PadGain   float64
	LFORate   float64 // pad amplitude modulation in Hz
	Snare     bool
	FadeIn    float64
	FadeOut   float64
}

// Genres maps genre names to their synthesis parameters. Frequencies
// follow simple consonant ratios around each root so the pad and bass
// sit together without tuning work.
var Genres = map[string]GenreParams{
	"ambient": {
		BPM: 70, BassRoot: 55,
		PadFreqs:  []float64{220, 277.18, 329.63, 440},
		KickGain:  0.10, HihatGain: 0.04, BassGain: 0.14, PadGain: 0.20,
		LFORate: 0.10, Snare: false, FadeIn: 0.8, FadeOut: 2.0,
	},
	"upbeat": {
		BPM: 120, BassRoot: 82.41,
		PadFreqs:  []float64{329.63, 392, 493.88},
		KickGain:  0.22, HihatGain: 0.10, BassGain: 0.18, PadGain: 0.12,
		LFORate: 0.25, Snare: true, FadeIn: 0.5, FadeOut: 2.0,
	},
	"chill": {
		BPM: 85, BassRoot: 61.74,
		PadFreqs:  []float64{246.94, 311.13, 369.99},
		KickGain:  0.14, HihatGain: 0.06, BassGain: 0.15, PadGain: 0.16,
		LFORate: 0.15, Snare: false, FadeIn: 0.8, FadeOut: 2.0,
	},
	"energetic": {
		BPM: 128, BassRoot: 87.31,
		PadFreqs:  []float64{349.23, 440, 523.25},
		KickGain:  0.25, HihatGain: 0.12, BassGain: 0.20, PadGain: 0.10,
		LFORate: 0.30, Snare: true, FadeIn: 0.4, FadeOut: 1.5,
	},
	"dreamy": {
		BPM: 75, BassRoot: 49,
		PadFreqs:  []float64{196, 246.94, 293.66, 392},
		KickGain:  0.08, HihatGain: 0.03, BassGain: 0.12, PadGain: 0.22,
		LFORate: 0.08, Snare: false, FadeIn: 1.2, FadeOut: 2.5,
	},
	"minimal": {
		BPM: 95, BassRoot: 65.41,
		PadFreqs:  []float64{261.63, 329.63},
		KickGain:  0.16, HihatGain: 0.05, BassGain: 0.16, PadGain: 0.08,
		LFORate: 0.12, Snare: false, FadeIn: 0.6, FadeOut: 2.0,
	},
	"corporate": {
		BPM: 100, BassRoot: 73.42,
		PadFreqs:  []float64{293.66, 369.99, 440},
		KickGain:  0.15, HihatGain: 0.07, BassGain: 0.14, PadGain: 0.15,
		LFORate: 0.20, Snare: false, FadeIn: 0.8, FadeOut: 2.0,
	},
}

// Params returns the genre parameters, falling back to ambient for
// unknown names.
func Params(genre string) GenreParams {
	if p, ok := Genres[genre]; ok {
		return p
	}
	return Genres["ambient"]
}
