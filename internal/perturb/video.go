package perturb

import (
	"math/rand"

	"github.com/minho-kw/clipforge/internal/ffmpeg"
)

// VideoChain renders a profile as an ordered filter chain for the clip
// path. The edge crop runs before mirror and resize so content still
// fills the frame afterwards; speed comes right after the geometry so
// any duration-dependent logic downstream sees the final timing.
func (p Profile) VideoChain(width, height int, fps float64) ffmpeg.Chain {
	chain := ffmpeg.Chain{
		ffmpeg.EdgeCrop{Fraction: p.CropFraction},
		ffmpeg.Scale{Width: width, Height: height, Flags: "lanczos"},
		ffmpeg.SetPTS{Speed: p.SpeedFactor},
	}
	if p.Mirror {
		chain = append(chain, ffmpeg.HFlip{})
	}
	chain = append(chain,
		ffmpeg.Eq{Brightness: p.Brightness, Contrast: p.Contrast, Saturation: p.Saturation},
		ffmpeg.Noise{Strength: int(p.NoiseSigma)},
		ffmpeg.FPS{Rate: fps},
	)
	return chain
}

// ClipChain renders a profile for multi-clip assembly: geometry, mirror,
// and color only. Speed is left untouched so every slice keeps the
// duration its allocation promised and the spliced track still sums to
// the target.
func (p Profile) ClipChain(width, height int, fps float64) ffmpeg.Chain {
	chain := ffmpeg.Chain{
		ffmpeg.EdgeCrop{Fraction: p.CropFraction},
		ffmpeg.Scale{Width: width, Height: height, Flags: "lanczos"},
	}
	if p.Mirror {
		chain = append(chain, ffmpeg.HFlip{})
	}
	chain = append(chain,
		ffmpeg.Eq{Brightness: p.Brightness, Contrast: p.Contrast, Saturation: p.Saturation},
		ffmpeg.Noise{Strength: int(p.NoiseSigma)},
		ffmpeg.FPS{Rate: fps},
	)
	return chain
}

// WashChain is the full single-asset launder pass: edge crop, rescale
// to jittered even dimensions, speed change, light sharpen, color
// shift, frame-rate resample. Mirroring stays caller-selected through
// the profile.
func (e *Engine) WashChain(p Profile, srcWidth, srcHeight int, fps float64) ffmpeg.Chain {
	w, h := JitteredDims(e.rng, srcWidth, srcHeight)

	chain := ffmpeg.Chain{
		ffmpeg.EdgeCrop{Fraction: p.CropFraction},
		ffmpeg.Scale{Width: w, Height: h, Flags: "lanczos"},
		ffmpeg.SetPTS{Speed: p.SpeedFactor},
	}
	if p.Mirror {
		chain = append(chain, ffmpeg.HFlip{})
	}
	chain = append(chain,
		ffmpeg.Unsharp{Amount: 0.3},
		ffmpeg.Eq{Brightness: p.Brightness, Contrast: p.Contrast, Saturation: p.Saturation},
		ffmpeg.Noise{Strength: int(p.NoiseSigma)},
		ffmpeg.FPS{Rate: fps},
	)
	return chain
}

// JitteredDims nudges dimensions by up to ±1%, rounded to even values
// since h264 rejects odd frame sizes.
func JitteredDims(rng *rand.Rand, w, h int) (int, int) {
	jitter := func(v int) int {
		f := 1 + (rng.Float64()*2-1)*0.01
		n := int(float64(v) * f)
		if n%2 == 1 {
			n--
		}
		if n < 2 {
			n = 2
		}
		return n
	}
	return jitter(w), jitter(h)
}
