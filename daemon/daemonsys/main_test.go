package daemonsys_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/daemon/daemonsys"
	"github.com/opensvc/httpd/testhelper"
)

func TestNotify(t *testing.T) {
	t.Run("without NOTIFY_SOCKET", func(t *testing.T) {
		t.Setenv("NOTIFY_SOCKET", "")
		sent, err := daemonsys.Notify(daemonsys.Ready)
		require.NoError(t, err)
		require.False(t, sent)
	})

	t.Run("with NOTIFY_SOCKET", func(t *testing.T) {
		path := testhelper.SocketPath(t)
		conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		t.Setenv("NOTIFY_SOCKET", path)

		b := make([]byte, 64)
		for _, state := range []string{daemonsys.Ready, daemonsys.Stopping} {
			sent, err := daemonsys.Notify(state)
			require.NoError(t, err)
			require.True(t, sent)
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
			n, err := conn.Read(b)
			require.NoError(t, err)
			require.Equal(t, state, string(b[:n]))
		}
	})
}

func TestCalledFromManager(t *testing.T) {
	t.Setenv("INVOCATION_ID", "")
	require.False(t, daemonsys.CalledFromManager())
	t.Setenv("INVOCATION_ID", "3f1b0c6c8a4e4c2e9d2f2b6f5e0a7c11")
	require.True(t, daemonsys.CalledFromManager())
}
