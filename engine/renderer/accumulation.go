package renderer

import (
	gomath "math"

	"github.com/spaghettifunk/lumen/engine/math"
)

/**
 * @brief Accumulator tracks how many frames have been blended into the
 * offscreen target for the current viewpoint. Any change to the view
 * matrix or field of view restarts accumulation; once MaxFrames is
 * reached the ray tracing dispatch is skipped so a converged image burns
 * no further GPU time.
 */
type Accumulator struct {
	// Reference view the current accumulation run started from.
	RefView math.Mat4
	RefFov  float32

	Frame     int32
	MaxFrames int32
}

func NewAccumulator(maxFrames int32) *Accumulator {
	return &Accumulator{
		Frame:     -1,
		MaxFrames: maxFrames,
	}
}

// sameMatrix compares bit patterns, not float equality. Accumulation must
// restart on any representational change, and two NaN payloads that match
// bitwise are still the same viewpoint.
func sameMatrix(a, b math.Mat4) bool {
	for i := range a.Data {
		if gomath.Float32bits(a.Data[i]) != gomath.Float32bits(b.Data[i]) {
			return false
		}
	}
	return true
}

/**
 * @brief Advances the frame counter for this viewpoint and returns the
 * frame index to render with. A viewpoint change resets the run, so the
 * first frame after a change renders with index 0.
 */
func (a *Accumulator) Tick(view math.Mat4, fov float32) int32 {
	if !sameMatrix(a.RefView, view) || a.RefFov != fov {
		a.Reset()
		a.RefView = view
		a.RefFov = fov
	}
	a.Frame++
	return a.Frame
}

// Reset restarts accumulation; the next Tick returns frame 0.
func (a *Accumulator) Reset() {
	a.Frame = -1
}

// Converged reports whether enough frames have accumulated.
func (a *Accumulator) Converged() bool {
	return a.Frame >= a.MaxFrames
}
