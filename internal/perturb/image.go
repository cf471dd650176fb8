package perturb

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	// Decoder registration for the still-image formats the motion path
	// accepts beyond png/jpeg.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Engine applies perturbations to still images in memory. Video-path
// perturbations render as filter chains instead, see video.go.
type Engine struct {
	logger zerolog.Logger
	bands  Bands
	rng    *rand.Rand
}

// NewEngine creates an engine with its own seeded RNG.
func NewEngine(logger zerolog.Logger, bands Bands, seed int64) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "perturb").Logger(),
		bands:  bands,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SampleProfile draws a fresh profile from the engine's bands.
func (e *Engine) SampleProfile() Profile {
	return Sample(e.rng, e.bands)
}

// SampleProfileForIndex draws a per-clip-index profile.
func (e *Engine) SampleProfileForIndex(index int) Profile {
	return SampleForIndex(e.rng, e.bands, index)
}

// Apply runs the image operations in fixed order: metadata strip,
// micro-resize, color shift (brightness, saturation, contrast), mirror,
// noise. Output dimensions always equal input dimensions. A failing
// step logs and passes the prior stage through; perturbation is
// cosmetic and never fails a job.
func (e *Engine) Apply(img image.Image, p Profile) image.Image {
	out := StripMetadata(img)

	if p.ResizePct != 0 {
		if resized, err := microResize(out, p.ResizePct); err != nil {
			e.logger.Warn().Err(err).Msg("micro-resize skipped")
		} else {
			out = resized
		}
	}

	out = colorShift(out, p.Brightness, p.Saturation, p.Contrast)

	if p.Mirror {
		out = mirror(out)
	}

	if p.NoiseSigma > 0 {
		addNoise(out, p.NoiseSigma, e.rng)
	}

	return out
}

// ApplyFile perturbs an image file, writing the result as PNG. The
// re-encode into a fresh container is itself the metadata strip.
func (e *Engine) ApplyFile(input, output string, p Profile) error {
	img, err := LoadImage(input)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	return SaveImage(output, e.Apply(img, p))
}

// StripMetadata redraws the pixels into a fresh buffer. Pixel values
// are unchanged, so applying it twice equals applying it once.
func StripMetadata(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// microResize scales by a signed percentage with Lanczos, then corrects
// the canvas back to the original dimensions so the size round-trips.
func microResize(img *image.NRGBA, pct float64) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := 1 + pct/100
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 || nh < 1 {
		return nil, fmt.Errorf("resize collapses image: %dx%d * %.3f", w, h, scale)
	}

	scaled := resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3)
	restored := resize.Resize(uint(w), uint(h), scaled, resize.Lanczos3)

	return StripMetadata(restored), nil
}

// colorShift perturbs brightness, then saturation, then contrast. The
// order is fixed so a profile reproduces the same output.
func colorShift(img *image.NRGBA, brightness, saturation, contrast float64) *image.NRGBA {
	bGain := 1 + brightness
	sGain := 1 + saturation
	cGain := 1 + contrast

	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		r := float64(pix[i]) * bGain
		g := float64(pix[i+1]) * bGain
		b := float64(pix[i+2]) * bGain

		luma := 0.299*r + 0.587*g + 0.114*b
		r = luma + (r-luma)*sGain
		g = luma + (g-luma)*sGain
		b = luma + (b-luma)*sGain

		r = (r-128)*cGain + 128
		g = (g-128)*cGain + 128
		b = (b-128)*cGain + 128

		pix[i] = clampByte(r)
		pix[i+1] = clampByte(g)
		pix[i+2] = clampByte(b)
	}
	return img
}

// mirror flips horizontally.
func mirror(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := y*img.Stride + x*4
			di := y*out.Stride + (w-1-x)*4
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return out
}

// addNoise injects Gaussian noise clipped to the valid byte range.
func addNoise(img *image.NRGBA, sigma float64, rng *rand.Rand) {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(pix[i+c]) + rng.NormFloat64()*sigma
			pix[i+c] = clampByte(v)
		}
	}
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// SaveImage encodes by extension, defaulting to PNG.
func SaveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	default:
		return png.Encode(f, img)
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
