// Package motion fakes camera movement over a still image: a named
// preset maps normalized time to a crop window, and each window is
// resampled to the output resolution. No 3D math is involved, the
// illusion comes entirely from the moving crop.
package motion

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
)

// Simulator computes crop windows for one preset.
type Simulator struct {
	logger  zerolog.Logger
	preset  Preset
	maxZoom float64
}

// New creates a simulator. maxZoom bounds how tight the crop may get;
// values at or below 1 fall back to a gentle 1.12.
func New(logger zerolog.Logger, preset Preset, maxZoom float64) (*Simulator, error) {
	if !preset.Valid() {
		return nil, fmt.Errorf("unknown motion preset: %q", preset)
	}
	if maxZoom <= 1 {
		maxZoom = 1.12
	}
	return &Simulator{
		logger:  logger.With().Str("component", "motion").Str("preset", string(preset)).Logger(),
		preset:  preset,
		maxZoom: maxZoom,
	}, nil
}

// CropRect returns the crop window at normalized time t in [0,1]. The
// rectangle is always fully inside the source and never smaller than
// the window implied by maxZoom.
func (s *Simulator) CropRect(t float64, srcW, srcH int) image.Rectangle {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	e := easeInOut(t)

	zoom := 1.0
	// progress of the pan/tilt offset through its available margin
	off := 0.0
	var dx, dy float64 // extra offsets in [-1,1] of the margin, for drift/bounce

	switch s.preset {
	case ZoomIn:
		zoom = 1 + (s.maxZoom-1)*e
	case ZoomOut:
		zoom = s.maxZoom - (s.maxZoom-1)*e
	case PanLeft:
		zoom = s.maxZoom
		off = 1 - e
	case PanRight:
		zoom = s.maxZoom
		off = e
	case TiltUp:
		zoom = s.maxZoom
		off = 1 - e
	case TiltDown:
		zoom = s.maxZoom
		off = e
	case DiagDR, DiagDL:
		zoom = s.maxZoom
		off = e
	case Pulse:
		zoom = 1 + (s.maxZoom-1)*0.5*(1-math.Cos(2*math.Pi*2*e))
	case Drift:
		zoom = 1 + (s.maxZoom-1)*0.5
		dx = math.Sin(2 * math.Pi * e)
		dy = math.Cos(2 * math.Pi * e)
	case ZoomRotate:
		zoom = 1 + (s.maxZoom-1)*e
		dx = 0.3 * math.Sin(2*math.Pi*1.5*e)
		dy = 0.3 * math.Cos(2*math.Pi*1.5*e)
	case Bounce:
		zoom = 1 + (s.maxZoom-1)*easeOutCubic(t)
		dy = math.Abs(math.Sin(3*math.Pi*t)) * (1 - t)
	}

	if zoom < 1 {
		zoom = 1
	} else if zoom > s.maxZoom {
		zoom = s.maxZoom
	}

	w := float64(srcW) / zoom
	h := float64(srcH) / zoom
	marginX := float64(srcW) - w
	marginY := float64(srcH) - h

	// centered baseline
	x := marginX / 2
	y := marginY / 2

	switch s.preset {
	case PanLeft, PanRight:
		x = marginX * off
	case TiltUp, TiltDown:
		y = marginY * off
	case DiagDR:
		x = marginX * off
		y = marginY * off
	case DiagDL:
		x = marginX * (1 - off)
		y = marginY * off
	case Drift, ZoomRotate:
		x += marginX / 2 * 0.5 * dx
		y += marginY / 2 * 0.5 * dy
	case Bounce:
		y = marginY / 2 * (1 - 0.6*dy)
	}

	x = clamp(x, 0, marginX)
	y = clamp(y, 0, marginY)

	x0 := int(math.Round(x))
	y0 := int(math.Round(y))
	x1 := x0 + int(math.Round(w))
	y1 := y0 + int(math.Round(h))
	if x1 > srcW {
		x1 = srcW
	}
	if y1 > srcH {
		y1 = srcH
	}

	return image.Rect(x0, y0, x1, y1)
}

// RenderFrames writes the frame sequence for a duration at the given
// fps, each crop resampled to outW x outH with Catmull-Rom. Returns the
// image2 pattern for the encoder.
func (s *Simulator) RenderFrames(ctx context.Context, src image.Image, duration, fps float64, outW, outH int, dir string) (string, int, error) {
	if duration <= 0 || fps <= 0 {
		return "", 0, fmt.Errorf("invalid duration %f or fps %f", duration, fps)
	}

	frames := int(math.Round(duration * fps))
	if frames < 1 {
		frames = 1
	}

	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	s.logger.Info().
		Int("frames", frames).
		Float64("duration", duration).
		Int("out_w", outW).
		Int("out_h", outH).
		Msg("rendering motion frames")

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		t := 0.0
		if frames > 1 {
			t = float64(i) / float64(frames-1)
		}
		crop := s.CropRect(t, srcW, srcH).Add(b.Min)

		frame := image.NewNRGBA(image.Rect(0, 0, outW, outH))
		xdraw.CatmullRom.Scale(frame, frame.Bounds(), src, crop, xdraw.Src, nil)

		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i))
		if err := writePNG(path, frame); err != nil {
			return "", 0, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	return filepath.Join(dir, "frame_%05d.png"), frames, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
