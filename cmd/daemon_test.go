package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/daemon/ctlcli"
	"github.com/opensvc/httpd/daemon/listener/lsnrctlux"
	"github.com/opensvc/httpd/testhelper"
)

type fakeUnit struct {
	defined     bool
	activated   bool
	activateErr error
	fromManager bool
	stopped     bool
	closed      bool
}

func (f *fakeUnit) Activated(context.Context) (bool, error) { return f.activated, f.activateErr }
func (f *fakeUnit) CalledFromManager() bool { return f.fromManager }
func (f *fakeUnit) Defined(context.Context) (bool, error) { return f.defined, nil }
func (f *fakeUnit) Unit() string { return "httpd.service" }

func (f *fakeUnit) Close() error {
	f.closed = true
	return nil
}

func (f *fakeUnit) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func startControl(t *testing.T) (string, <-chan error) {
	t.Helper()
	path := testhelper.SocketPath(t)
	ctl, err := lsnrctlux.New(
		lsnrctlux.WithPath(path),
		lsnrctlux.WithName("httpd"),
		lsnrctlux.WithPollInterval(20*time.Millisecond),
		lsnrctlux.WithSignals(),
	)
	require.NoError(t, err)
	returned := make(chan error, 1)
	go func() {
		returned <- ctl.ListenBlock()
		_ = ctl.Close()
	}()
	return path, returned
}

func TestStopDaemon(t *testing.T) {
	ctx := context.Background()

	t.Run("no systemd", func(t *testing.T) {
		path, returned := startControl(t)
		reply, err := stopDaemon(ctx, nil, ctlcli.New(path))
		require.NoError(t, err)
		require.Equal(t, "Stopping httpd.", reply)
		require.NoError(t, <-returned)
	})

	t.Run("active unit gets the stop", func(t *testing.T) {
		unit := &fakeUnit{defined: true, activated: true}
		reply, err := stopDaemon(ctx, unit, ctlcli.New(testhelper.SocketPath(t)))
		require.NoError(t, err)
		require.Equal(t, "Stopped httpd.service.", reply)
		require.True(t, unit.stopped)
		require.True(t, unit.closed)
	})

	cases := map[string]*fakeUnit{
		"unit not defined":    {},
		"called from manager": {defined: true, activated: true, fromManager: true},
		"unit not activated":  {defined: true},
	}
	for name, unit := range cases {
		t.Run(name, func(t *testing.T) {
			path, returned := startControl(t)
			reply, err := stopDaemon(ctx, unit, ctlcli.New(path))
			require.NoError(t, err)
			require.Equal(t, "Stopping httpd.", reply)
			require.NoError(t, <-returned)
			require.False(t, unit.stopped)
			require.True(t, unit.closed)
		})
	}

	t.Run("activated state error", func(t *testing.T) {
		unit := &fakeUnit{defined: true, activateErr: errors.New("dbus gone")}
		_, err := stopDaemon(ctx, unit, ctlcli.New(testhelper.SocketPath(t)))
		require.ErrorContains(t, err, "dbus gone")
		require.False(t, unit.stopped)
	})
}
