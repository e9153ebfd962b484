// Package testhelper provides the fixtures shared by the package tests.
package testhelper

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/opensvc/httpd/core/identity"
)

// ReadTimeout bounds the wait of a response in Request
var ReadTimeout = 3 * time.Second

// Setup sends the debug logs to the console
func Setup(t *testing.T) {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Logger.Output(zerolog.NewConsoleWriter()).With().Caller().Logger()
}

// SocketPath returns a unix socket path in a new temp dir. The path is
// kept short to fit the sun_path limit.
func SocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "httpd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "ctl.sock")
}

// DocRoot returns a temp document root hosting files, by relative path
func DocRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), os.ModePerm))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

// Identity returns the path of a new self signed localhost identity
func Identity(t *testing.T, password string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "identity.pfx")
	require.NoError(t, identity.Write(p, identity.Options{CommonName: "localhost", Validity: time.Hour}, password))
	return p
}

// Request writes request on conn and returns what is read until the
// server closes the connection. conn is closed.
func Request(t *testing.T, conn net.Conn, request string) string {
	t.Helper()
	defer func() { _ = conn.Close() }()
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	b, _ := io.ReadAll(conn)
	return string(b)
}
