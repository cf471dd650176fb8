// Package perturb alters media fingerprints without changing what a
// viewer sees: metadata stripping, micro-resizes, small color shifts,
// mirroring, edge crops, speed changes, and noise injection.
package perturb

import (
	"math/rand"

	"github.com/minho-kw/clipforge/pkg/util"
)

// Bands bound every sampled profile field.
type Bands struct {
	ResizePctMin  float64
	ResizePctMax  float64
	CropMin       float64
	CropMax       float64
	SpeedMin      float64
	SpeedMax      float64
	NoiseSigmaMin float64
	NoiseSigmaMax float64
	ColorDeltaMax float64
	MirrorChance  float64
}

// DefaultBands are the tuned production ranges: strong enough to move a
// perceptual hash, too small to notice at phone size.
func DefaultBands() Bands {
	return Bands{
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
	}
}

// Profile is one sampled set of perturbation parameters. Profiles are
// sampled per asset or per clip index so sibling clips diverge.
type Profile struct {
	ResizePct    float64 // signed percentage
	Brightness   float64
	Saturation   float64
	Contrast     float64
	Mirror       bool
	CropFraction float64
	SpeedFactor  float64
	NoiseSigma   float64
}

// Sample draws a fresh profile from the bands. The RNG is threaded in
// explicitly so callers control determinism.
func Sample(rng *rand.Rand, b Bands) Profile {
	p := Profile{
		ResizePct:    signed(rng, b.ResizePctMin, b.ResizePctMax),
		Brightness:   signed(rng, 0, b.ColorDeltaMax),
		Saturation:   signed(rng, 0, b.ColorDeltaMax),
		Contrast:     signed(rng, 0, b.ColorDeltaMax),
		Mirror:       rng.Float64() < b.MirrorChance,
		CropFraction: uniform(rng, b.CropMin, b.CropMax),
		SpeedFactor:  uniform(rng, b.SpeedMin, b.SpeedMax),
		NoiseSigma:   uniform(rng, b.NoiseSigmaMin, b.NoiseSigmaMax),
	}
	return p.Clamp(b)
}

// SampleForIndex draws a per-clip profile for multi-clip assembly.
// Mirroring alternates by index instead of by chance so adjacent clips
// always differ.
func SampleForIndex(rng *rand.Rand, b Bands, index int) Profile {
	p := Sample(rng, b)
	p.Mirror = index%2 == 1
	return p
}

// Clamp bounds every field back into the bands.
func (p Profile) Clamp(b Bands) Profile {
	mag := util.Clamp(abs(p.ResizePct), b.ResizePctMin, b.ResizePctMax)
	if p.ResizePct < 0 {
		p.ResizePct = -mag
	} else {
		p.ResizePct = mag
	}
	p.Brightness = util.Clamp(p.Brightness, -b.ColorDeltaMax, b.ColorDeltaMax)
	p.Saturation = util.Clamp(p.Saturation, -b.ColorDeltaMax, b.ColorDeltaMax)
	p.Contrast = util.Clamp(p.Contrast, -b.ColorDeltaMax, b.ColorDeltaMax)
	p.CropFraction = util.Clamp(p.CropFraction, b.CropMin, b.CropMax)
	p.SpeedFactor = util.Clamp(p.SpeedFactor, b.SpeedMin, b.SpeedMax)
	p.NoiseSigma = util.Clamp(p.NoiseSigma, b.NoiseSigmaMin, b.NoiseSigmaMax)
	return p
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// signed draws a magnitude in [lo, hi] with random sign.
func signed(rng *rand.Rand, lo, hi float64) float64 {
	v := uniform(rng, lo, hi)
	if rng.Intn(2) == 0 {
		return -v
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
