package ffmpeg

import (
	"fmt"
	"strings"
)

// Stage is one element of a video filter chain. Stages carry typed
// parameters and are rendered to ffmpeg filter syntax only when the
// command line is assembled, which keeps escaping in one place and lets
// chains be unit-tested without running ffmpeg.
type Stage interface {
	Render() string
}

// Chain is an ordered filter chain.
type Chain []Stage

// Render joins the chain into a -vf argument. Empty stages are skipped.
func (c Chain) Render() string {
	parts := make([]string, 0, len(c))
	for _, s := range c {
		if r := s.Render(); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, ",")
}

// Scale resizes to fixed pixel dimensions.
type Scale struct {
	Width  int
	Height int
	Flags  string
}

func (s Scale) Render() string {
	if s.Width <= 0 || s.Height <= 0 {
		return ""
	}
	if s.Flags != "" {
		return fmt.Sprintf("scale=%d:%d:flags=%s", s.Width, s.Height, s.Flags)
	}
	return fmt.Sprintf("scale=%d:%d", s.Width, s.Height)
}

// ScaleExpr resizes using ffmpeg size expressions (iw/ih arithmetic).
type ScaleExpr struct {
	W     string
	H     string
	Flags string
}

func (s ScaleExpr) Render() string {
	if s.W == "" || s.H == "" {
		return ""
	}
	if s.Flags != "" {
		return fmt.Sprintf("scale=%s:%s:flags=%s", s.W, s.H, s.Flags)
	}
	return fmt.Sprintf("scale=%s:%s", s.W, s.H)
}

// CoverCrop scales to cover the target frame then center-crops to it.
type CoverCrop struct {
	Width  int
	Height int
}

func (c CoverCrop) Render() string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos,crop=%d:%d",
		c.Width, c.Height, c.Width, c.Height)
}

// EdgeCrop removes a uniform edge fraction on all sides.
type EdgeCrop struct {
	Fraction float64
}

func (c EdgeCrop) Render() string {
	if c.Fraction <= 0 {
		return ""
	}
	f := c.Fraction
	return fmt.Sprintf("crop=iw*%.4f:ih*%.4f:iw*%.4f:ih*%.4f", 1-2*f, 1-2*f, f, f)
}

// SetPTS changes playback speed by rescaling presentation timestamps.
type SetPTS struct {
	Speed float64
}

func (s SetPTS) Render() string {
	if s.Speed <= 0 || s.Speed == 1 {
		return ""
	}
	return fmt.Sprintf("setpts=PTS/%.4f", s.Speed)
}

// HFlip mirrors the frame horizontally.
type HFlip struct{}

func (HFlip) Render() string { return "hflip" }

// Eq applies small brightness/contrast/saturation offsets.
type Eq struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

func (e Eq) Render() string {
	if e.Brightness == 0 && e.Contrast == 0 && e.Saturation == 0 {
		return ""
	}
	return fmt.Sprintf("eq=brightness=%.4f:contrast=%.4f:saturation=%.4f",
		e.Brightness, 1+e.Contrast, 1+e.Saturation)
}

// Noise injects temporal film-grain style noise.
type Noise struct {
	Strength int
}

func (n Noise) Render() string {
	if n.Strength <= 0 {
		return ""
	}
	return fmt.Sprintf("noise=alls=%d:allf=t", n.Strength)
}

// Unsharp sharpens slightly to break pixel-exact matching after rescale.
type Unsharp struct {
	Amount float64
}

func (u Unsharp) Render() string {
	if u.Amount == 0 {
		return ""
	}
	return fmt.Sprintf("unsharp=5:5:%.2f:5:5:0.0", u.Amount)
}

// FPS resamples to a fixed frame rate.
type FPS struct {
	Rate float64
}

func (f FPS) Render() string {
	if f.Rate <= 0 {
		return ""
	}
	return fmt.Sprintf("fps=%g", f.Rate)
}

// Fade fades video in or out.
type Fade struct {
	Out      bool
	Start    float64
	Duration float64
}

func (f Fade) Render() string {
	if f.Duration <= 0 {
		return ""
	}
	dir := "in"
	if f.Out {
		dir = "out"
	}
	return fmt.Sprintf("fade=t=%s:st=%.3f:d=%.3f", dir, f.Start, f.Duration)
}

// Subtitles burns a subtitle file into the frames.
type Subtitles struct {
	Path       string
	ForceStyle string
}

func (s Subtitles) Render() string {
	if s.Path == "" {
		return ""
	}
	out := fmt.Sprintf("subtitles=%s", escapeSubtitlePath(s.Path))
	if s.ForceStyle != "" {
		out += fmt.Sprintf(":force_style='%s'", s.ForceStyle)
	}
	return out
}

// Raw is an escape hatch for a preassembled filter expression.
type Raw string

func (r Raw) Render() string { return string(r) }
