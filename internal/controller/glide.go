package controller

import "math"

// epsilon absorbs float drift so that a remaining distance of exactly one
// step counts as within the threshold.
const epsilon = 1e-9

// glide is a step-wise linear ramp of the output volume toward target.
type glide struct {
	target float64
	onDone func()
}

// GlideStep advances a volume ramp by one tick. When the remaining
// distance is within threshold the value snaps to target and done is true;
// otherwise it moves by step toward target.
func GlideStep(current, target, step, threshold float64) (next float64, done bool) {
	diff := target - current
	if math.Abs(diff) < threshold+epsilon {
		return target, true
	}
	// Never overshoot; a coarse step with a fine threshold would oscillate.
	if math.Abs(diff) < step {
		return target, false
	}
	if diff > 0 {
		return current + step, false
	}
	return current - step, false
}
