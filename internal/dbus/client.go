package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// caller issues method calls. dbus.BusObject satisfies it.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Client talks to a running atmosd.
type Client struct {
	conn   *dbus.Conn
	obj    caller
	logger *slog.Logger
}

// NewClient connects to the session bus. It does not check that the
// daemon is running; the first call reports ErrDaemonNotRunning.
func NewClient(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn:   conn,
		obj:    conn.Object(BusName, Path),
		logger: logger,
	}, nil
}

// Close closes the private bus connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Start opens the session.
func (c *Client) Start(ctx context.Context) error {
	return c.call(ctx, "Start").Err
}

// SetMode selects an atmosphere by name or label.
func (c *Client) SetMode(ctx context.Context, mode string) error {
	return c.call(ctx, "SetMode", mode).Err
}

// SetVolume sets the desired volume.
func (c *Client) SetVolume(ctx context.Context, level float64) error {
	return c.call(ctx, "SetVolume", level).Err
}

// SetMuted sets the mute flag.
func (c *Client) SetMuted(ctx context.Context, muted bool) error {
	return c.call(ctx, "SetMuted", muted).Err
}

// ToggleMute flips the mute flag and returns the new value.
func (c *Client) ToggleMute(ctx context.Context) (bool, error) {
	var muted bool
	if err := c.call(ctx, "ToggleMute").Store(&muted); err != nil {
		return false, err
	}
	return muted, nil
}

// Status fetches the controller snapshot.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var (
		st        Status
		startedAt int64
	)
	err := c.call(ctx, "GetStatus").Store(
		&st.Mode, &st.Volume, &st.Muted, &st.Started, &st.Stage, &st.Playing,
		&startedAt, &st.SwitchID,
	)
	if err != nil {
		return Status{}, err
	}
	st.StartedAt = fromUnixMilli(startedAt)
	return st, nil
}

// ListModes returns mode names in dock order.
func (c *Client) ListModes(ctx context.Context) ([]string, error) {
	var modes []string
	if err := c.call(ctx, "ListModes").Store(&modes); err != nil {
		return nil, err
	}
	return modes, nil
}

// Subscribe delivers StageChanged signals until ctx is done. The returned
// channel is closed when the subscription ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan StageChange, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected to D-Bus")
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(Path),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalStageChanged),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)

	out := make(chan StageChange, 16)
	go func() {
		defer close(out)
		defer func() {
			c.conn.RemoveSignal(signals)
			if err := c.conn.RemoveMatchSignal(opts...); err != nil {
				c.logger.Debug("failed to remove match rule", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				change, ok := parseStageChanged(sig)
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parseStageChanged(sig *dbus.Signal) (StageChange, bool) {
	if sig == nil || sig.Name != Interface+"."+SignalStageChanged || len(sig.Body) != 3 {
		return StageChange{}, false
	}
	from, ok1 := sig.Body[0].(string)
	to, ok2 := sig.Body[1].(string)
	mode, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return StageChange{}, false
	}
	return StageChange{From: from, To: to, Mode: mode}, true
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	call.Err = translateError(call.Err)
	return call
}

// translateError maps bus-level failures to package errors and unwraps
// failures reported by the daemon.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	dbusErr, ok := asDBusError(err)
	if !ok {
		return err
	}
	switch dbusErr.Name {
	case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.NameHasNoOwner":
		return ErrDaemonNotRunning
	case "org.freedesktop.DBus.Error.Failed":
		if len(dbusErr.Body) > 0 {
			if msg, ok := dbusErr.Body[0].(string); ok {
				return errors.New(msg)
			}
		}
	}
	return err
}

// asDBusError finds a dbus.Error in err's chain; replies carry it by value
// and local failures by pointer.
func asDBusError(err error) (dbus.Error, bool) {
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val dbus.Error
	if errors.As(err, &val) {
		return val, true
	}
	return dbus.Error{}, false
}
