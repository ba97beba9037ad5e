package dbus

import (
	"errors"
	"time"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

const (
	// Interface is the atmosphere control interface name.
	Interface = "io.github.nomadstudio.Atmos"
	// Path is the object path of the controller.
	Path = "/io/github/nomadstudio/Atmos"
	// BusName is the bus name the daemon claims.
	BusName = "io.github.nomadstudio.Atmos"

	// SignalStageChanged is emitted on every switch sequence stage change.
	SignalStageChanged = "StageChanged"
)

// ErrDaemonNotRunning is returned by the client when nothing owns BusName.
var ErrDaemonNotRunning = errors.New("atmosd is not running")

// Status is the daemon snapshot in wire-friendly types.
type Status struct {
	Mode      string    `json:"mode"`
	Volume    float64   `json:"volume"`
	Muted     bool      `json:"muted"`
	Started   bool      `json:"started"`
	Stage     string    `json:"stage"`
	Playing   bool      `json:"playing"`
	StartedAt time.Time `json:"started_at,omitzero"`
	SwitchID  string    `json:"switch_id,omitempty"`
}

// ParsedMode returns the status mode as an atmosphere.Mode.
func (s Status) ParsedMode() (atmosphere.Mode, error) {
	return atmosphere.ParseMode(s.Mode)
}

// StageChange is the payload of the StageChanged signal.
type StageChange struct {
	From string
	To   string
	Mode string
}

// unixMilli encodes t for the wire; the zero time is sent as 0.
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
