package dbus

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

// Controller is what the server exports on the bus. The daemon adapts the
// atmosphere controller to it.
type Controller interface {
	Start()
	SetMode(m atmosphere.Mode)
	SetVolume(level float64)
	SetMuted(muted bool)
	ToggleMute() bool
	Status() Status
}

// emitter sends signals. *dbus.Conn satisfies it.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Server exports a Controller on the session bus.
type Server struct {
	obj    *object
	logger *slog.Logger

	mu      sync.Mutex
	conn    *dbus.Conn
	emit    emitter
	running bool
}

// NewServer creates a Server for ctrl.
func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		obj:    &object{ctrl: ctrl, logger: logger},
		logger: logger,
	}
}

// Start connects to the session bus, exports the controller and claims BusName.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s.obj, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: atmosMethods(),
				Signals: atmosSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.conn = conn
	s.emit = conn
	s.running = true

	s.logger.Info("D-Bus server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
		_ = s.conn.Export(nil, Path, Interface)
	}
	s.emit = nil

	s.logger.Info("D-Bus server stopped")
	return nil
}

// EmitStageChanged broadcasts c. It is a no-op while the server is stopped.
func (s *Server) EmitStageChanged(c StageChange) {
	s.mu.Lock()
	e := s.emit
	s.mu.Unlock()

	if e == nil {
		return
	}
	err := e.Emit(Path, Interface+"."+SignalStageChanged, c.From, c.To, c.Mode)
	if err != nil {
		s.logger.Warn("failed to emit StageChanged signal", "error", err)
		return
	}
	s.logger.Debug("emitted StageChanged signal", "from", c.From, "to", c.To, "mode", c.Mode)
}

// object carries the exported D-Bus methods. It is kept apart from Server
// so the Go method set matches the interface exactly.
type object struct {
	ctrl   Controller
	logger *slog.Logger
}

// Start opens the session.
// D-Bus method: Start() -> nothing
func (o *object) Start() *dbus.Error {
	o.logger.Debug("Start called")
	o.ctrl.Start()
	return nil
}

// SetMode selects an atmosphere by name or label.
// D-Bus method: SetMode(s) -> nothing
func (o *object) SetMode(name string) *dbus.Error {
	o.logger.Debug("SetMode called", "mode", name)

	m, err := atmosphere.ParseMode(name)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	o.ctrl.SetMode(m)
	return nil
}

// SetVolume sets the desired volume.
// D-Bus method: SetVolume(d) -> nothing
func (o *object) SetVolume(level float64) *dbus.Error {
	o.logger.Debug("SetVolume called", "volume", level)

	if math.IsNaN(level) || math.IsInf(level, 0) {
		return dbus.MakeFailedError(fmt.Errorf("invalid volume %v", level))
	}
	o.ctrl.SetVolume(level)
	return nil
}

// SetMuted sets the mute flag.
// D-Bus method: SetMuted(b) -> nothing
func (o *object) SetMuted(muted bool) *dbus.Error {
	o.logger.Debug("SetMuted called", "muted", muted)
	o.ctrl.SetMuted(muted)
	return nil
}

// ToggleMute flips the mute flag.
// D-Bus method: ToggleMute() -> b
func (o *object) ToggleMute() (bool, *dbus.Error) {
	muted := o.ctrl.ToggleMute()
	o.logger.Debug("ToggleMute called", "muted", muted)
	return muted, nil
}

// GetStatus returns the controller snapshot.
// D-Bus method: GetStatus() -> (sdbbsbxs)
func (o *object) GetStatus() (string, float64, bool, bool, string, bool, int64, string, *dbus.Error) {
	st := o.ctrl.Status()
	return st.Mode, st.Volume, st.Muted, st.Started, st.Stage, st.Playing,
		unixMilli(st.StartedAt), st.SwitchID, nil
}

// ListModes returns the mode names in dock order.
// D-Bus method: ListModes() -> as
func (o *object) ListModes() ([]string, *dbus.Error) {
	modes := atmosphere.AllModes()
	names := make([]string, 0, len(modes))
	for _, m := range modes {
		names = append(names, m.String())
	}
	return names, nil
}

func atmosMethods() []introspect.Method {
	return []introspect.Method{
		{Name: "Start"},
		{
			Name: "SetMode",
			Args: []introspect.Arg{
				{Name: "mode", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "SetVolume",
			Args: []introspect.Arg{
				{Name: "volume", Type: "d", Direction: "in"},
			},
		},
		{
			Name: "SetMuted",
			Args: []introspect.Arg{
				{Name: "muted", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "ToggleMute",
			Args: []introspect.Arg{
				{Name: "muted", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "mode", Type: "s", Direction: "out"},
				{Name: "volume", Type: "d", Direction: "out"},
				{Name: "muted", Type: "b", Direction: "out"},
				{Name: "started", Type: "b", Direction: "out"},
				{Name: "stage", Type: "s", Direction: "out"},
				{Name: "playing", Type: "b", Direction: "out"},
				{Name: "started_at", Type: "x", Direction: "out"},
				{Name: "switch_id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "ListModes",
			Args: []introspect.Arg{
				{Name: "modes", Type: "as", Direction: "out"},
			},
		},
	}
}

func atmosSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalStageChanged,
			Args: []introspect.Arg{
				{Name: "from", Type: "s"},
				{Name: "to", Type: "s"},
				{Name: "mode", Type: "s"},
			},
		},
	}
}
