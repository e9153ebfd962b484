/*
Package daemonsys is the systemd side of the daemon.

The daemon reports its state with Notify. It is a no-op when the
NOTIFY_SOCKET environment variable is not set, so the same binary runs
under a Type=notify unit or from a shell.

The cli uses T, a systemd dbus connection, to forward the daemon stop
to the unit when the unit manages the daemon.
*/
package daemonsys

import (
	"context"
	"fmt"
	"os"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/coreos/go-systemd/v22/dbus"
)

type (
	// T handle dbus.Conn for systemd
	T struct {
		conn *dbus.Conn
		unit string
	}
)

const (
	Ready    = sddaemon.SdNotifyReady
	Stopping = sddaemon.SdNotifyStopping
)

var (
	DefaultUnit = "httpd.service"
)

// Notify sends state to the service manager. It returns false, nil when
// NOTIFY_SOCKET is not set.
func Notify(state string) (bool, error) {
	return sddaemon.SdNotify(false, state)
}

// CalledFromManager detects if current process as been launched by systemd
func CalledFromManager() bool {
	return os.Getenv("INVOCATION_ID") != ""
}

// New provides a connected object to dbus systemd managing unit
func New(ctx context.Context, unit string) (*T, error) {
	c, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, err
	}
	return &T{conn: c, unit: unit}, nil
}

// Unit returns the managed unit name
func (t *T) Unit() string {
	return t.unit
}

// Activated detects if the unit is activated
func (t *T) Activated(ctx context.Context) (bool, error) {
	return t.propertyIs(ctx, "ActiveState", "active")
}

// Defined detects if the unit is loaded by systemd
func (t *T) Defined(ctx context.Context) (bool, error) {
	return t.propertyIs(ctx, "LoadState", "loaded")
}

func (t *T) propertyIs(ctx context.Context, name, value string) (bool, error) {
	prop, err := t.conn.GetUnitPropertyContext(ctx, t.unit, name)
	if err != nil {
		return false, err
	}
	if prop == nil {
		return false, nil
	}
	return prop.Value.String() == fmt.Sprintf("%q", value), nil
}

func (t *T) CalledFromManager() bool {
	return CalledFromManager()
}

// Stop stops the unit and waits for the job result
func (t *T) Stop(ctx context.Context) error {
	c := make(chan string, 1)
	if _, err := t.conn.StopUnitContext(ctx, t.unit, "replace", c); err != nil {
		return err
	}
	select {
	case result := <-c:
		if result != "done" {
			return fmt.Errorf("stop %s: job %s", t.unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes systemd dbus connection
func (t *T) Close() error {
	if t.conn != nil {
		t.conn.Close()
	}
	return nil
}
