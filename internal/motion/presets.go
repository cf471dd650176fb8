package motion

import "math"

// Preset names a virtual camera trajectory.
type Preset string

const (
	ZoomIn     Preset = "zoom_in"
	ZoomOut    Preset = "zoom_out"
	PanLeft    Preset = "pan_left"
	PanRight   Preset = "pan_right"
	TiltUp     Preset = "tilt_up"
	TiltDown   Preset = "tilt_down"
	DiagDR     Preset = "diag_dr"
	DiagDL     Preset = "diag_dl"
	Pulse      Preset = "pulse"
	Drift      Preset = "drift"
	ZoomRotate Preset = "zoom_rotate"
	Bounce     Preset = "bounce"
)

// Presets lists every supported preset.
func Presets() []Preset {
	return []Preset{
		ZoomIn, ZoomOut, PanLeft, PanRight, TiltUp, TiltDown,
		DiagDR, DiagDL, Pulse, Drift, ZoomRotate, Bounce,
	}
}

// Valid reports whether the name is a known preset.
func (p Preset) Valid() bool {
	for _, q := range Presets() {
		if p == q {
			return true
		}
	}
	return false
}

// easeInOut is the cubic ease-in-ease-out remap applied to normalized
// time before any trajectory math.
func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// easeOutCubic decelerates toward 1.
func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}
