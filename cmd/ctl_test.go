package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/daemon/ctlcli"
	"github.com/opensvc/httpd/daemon/listener/lsnrctlux"
	"github.com/opensvc/httpd/testhelper"
)

func TestCtl(t *testing.T) {
	color.NoColor = true
	path := testhelper.SocketPath(t)

	ctlux, err := lsnrctlux.New(
		lsnrctlux.WithPath(path),
		lsnrctlux.WithName("httpd"),
		lsnrctlux.WithPollInterval(20*time.Millisecond),
		lsnrctlux.WithSignals(),
	)
	require.NoError(t, err)
	defer func() { _ = ctlux.Close() }()
	returned := make(chan error, 1)
	go func() { returned <- ctlux.ListenBlock() }()

	var out bytes.Buffer
	in := strings.NewReader("help\n\nping\nstop\nnever sent\n")
	require.NoError(t, ctl(ctlcli.New(path), in, &out))
	require.NoError(t, <-returned)

	s := out.String()
	require.Contains(t, s, "stop - stop the server")
	require.Contains(t, s, "Other control clients wait until this session ends.")
	require.Contains(t, s, "Unknown command.\n")
	require.Contains(t, s, "Stopping httpd.\n")
	require.NotContains(t, s, "never sent")
}

func TestCtlExit(t *testing.T) {
	color.NoColor = true
	path := testhelper.SocketPath(t)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.Error(t, ctl(ctlcli.New(path), strings.NewReader("exit\n"), &bytes.Buffer{}), "no daemon")

	ctlux, err := lsnrctlux.New(lsnrctlux.WithPath(path), lsnrctlux.WithSignals())
	require.NoError(t, err)
	defer func() { _ = ctlux.Close() }()
	var out bytes.Buffer
	require.NoError(t, ctl(ctlcli.New(path), strings.NewReader("exit\nstop\n"), &out))
	require.Equal(t, ">>> ", out.String())
}
