package daemon

import (
	"github.com/nomadstudio/atmos/internal/controller"
	"github.com/nomadstudio/atmos/internal/dbus"
)

// BusController exports a *controller.Controller through dbus.Server.
type BusController struct {
	*controller.Controller
}

// Status returns the controller snapshot in bus form.
func (b BusController) Status() dbus.Status {
	return BusStatus(b.Controller.Status())
}

// BusStatus converts a controller snapshot for the bus.
func BusStatus(s controller.Status) dbus.Status {
	return dbus.Status{
		Mode:      s.Mode.String(),
		Volume:    s.Volume,
		Muted:     s.Muted,
		Started:   s.Started,
		Stage:     s.Stage.String(),
		Playing:   s.Playing,
		StartedAt: s.StartedAt,
		SwitchID:  s.TransitionID,
	}
}

// BusStageChange converts a controller transition into a StageChanged payload.
func BusStageChange(t controller.Transition) dbus.StageChange {
	return dbus.StageChange{
		From: t.From.String(),
		To:   t.To.String(),
		Mode: t.Mode.String(),
	}
}
