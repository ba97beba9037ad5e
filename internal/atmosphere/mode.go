// Package atmosphere defines the atmosphere modes and the static
// mode-to-sensory-configuration manifest.
package atmosphere

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when a mode name cannot be parsed.
var ErrUnknownMode = errors.New("unknown atmosphere mode")

// Mode is one of the fixed ambient presets.
type Mode int

const (
	ModeSilence Mode = iota
	ModeWind
	ModeOcean

	// ModeCount is the number of defined modes. Arrays indexed by Mode
	// use it as their length.
	ModeCount
)

// modeNames maps modes to their canonical names.
var modeNames = [ModeCount]string{
	ModeSilence: "SILENCE",
	ModeWind:    "WIND",
	ModeOcean:   "OCEAN",
}

// modeLabels are the labels shown in the mode dock.
var modeLabels = [ModeCount]string{
	ModeSilence: "Raw",
	ModeWind:    "Atmosphere",
	ModeOcean:   "Water",
}

// AllModes returns every mode in dock order.
func AllModes() []Mode {
	return []Mode{ModeSilence, ModeWind, ModeOcean}
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= 0 && m < ModeCount
}

// String returns the canonical upper-case name.
func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Label returns the dock label (e.g. "Water" for OCEAN).
func (m Mode) Label() string {
	if !m.Valid() {
		return ""
	}
	return modeLabels[m]
}

// Icon returns the single-letter dock icon.
func (m Mode) Icon() string {
	l := m.Label()
	if l == "" {
		return "?"
	}
	return l[:1]
}

// ParseMode parses a mode name. Canonical names and dock labels are
// accepted, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, m := range AllModes() {
		if strings.EqualFold(s, modeNames[m]) || strings.EqualFold(s, modeLabels[m]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so modes can be used
// directly in TOML and YAML documents.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
