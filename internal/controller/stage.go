package controller

// Stage is the position of the controller in the switch sequence.
type Stage int

const (
	// StageIdle: no switch in flight. A short in-place glide may still be
	// settling the output toward the desired volume.
	StageIdle Stage = iota
	// StageFadingOut: gliding the old track down to silence.
	StageFadingOut
	// StageSwapping: loading the new track and seeking to its remembered position.
	StageSwapping
	// StageStarting: waiting for the output to accept the play request.
	StageStarting
	// StageFadingIn: gliding the new track up to the desired volume.
	StageFadingIn
)

var stageNames = map[Stage]string{
	StageIdle:      "idle",
	StageFadingOut: "fading-out",
	StageSwapping:  "swapping",
	StageStarting:  "starting",
	StageFadingIn:  "fading-in",
}

// String returns the stage name.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Switching reports whether a switch sequence is in flight.
func (s Stage) Switching() bool {
	return s != StageIdle
}
