package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settings = `
[server]
ip = "127.0.0.1"
domain = "localhost"
document_root = "/srv/www"

[http]
port = 80
redirect = "https://localhost"

[https]
port = 443
threads = 8

[https.ssl]
identity = "identity.pfx"
password = "secret"

[listener]
read_timeout = "2s"
`

func writeSettings(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Settings.toml")
	require.NoError(t, os.WriteFile(p, []byte(settings), 0644))
	return p
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", c.File)
	assert.Equal(t, "0.0.0.0", c.Server.IP)
	assert.Equal(t, ".", c.Server.DocumentRoot)
	assert.True(t, c.HTTP.Enabled)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, 4, c.HTTP.Threads)
	assert.Equal(t, 8443, c.HTTPS.Port)
	assert.Equal(t, "/tmp/httpd.sock", c.Control.Socket)
	assert.Equal(t, 80*time.Millisecond, c.Control.PollInterval)
	assert.Equal(t, 80*time.Millisecond, c.Listener.PollInterval)
	assert.Equal(t, 5*time.Second, c.Listener.ReadTimeout)
	assert.Equal(t, "httpd.log", c.Log.File)
	assert.Equal(t, "", c.Metrics.Addr)
}

func TestFile(t *testing.T) {
	p := writeSettings(t)
	c, err := Load(WithFile(p))
	require.NoError(t, err)
	assert.Equal(t, p, c.File)
	assert.Equal(t, "127.0.0.1", c.Server.IP)
	assert.Equal(t, "localhost", c.Server.Domain)
	assert.Equal(t, "/srv/www", c.Server.DocumentRoot)
	assert.Equal(t, 80, c.HTTP.Port)
	assert.Equal(t, "https://localhost", c.HTTP.Redirect)
	assert.Equal(t, 4, c.HTTP.Threads, "threads default")
	assert.Equal(t, 443, c.HTTPS.Port)
	assert.Equal(t, 8, c.HTTPS.Threads)
	assert.Equal(t, "identity.pfx", c.HTTPS.SSL.Identity)
	assert.Equal(t, "secret", c.HTTPS.SSL.Password)
	assert.Equal(t, 2*time.Second, c.Listener.ReadTimeout)
	assert.Equal(t, "127.0.0.1:443", c.Addr(c.HTTPS.Port))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HTTPD_HTTP_PORT", "9090")
	t.Setenv("HTTPD_CONTROL_SOCKET", "/run/httpd.sock")
	c, err := Load(WithFile(writeSettings(t)))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.HTTP.Port)
	assert.Equal(t, "/run/httpd.sock", c.Control.Socket)
}

func TestFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("socket", "", "")
	flags.String("root", "", "")
	require.NoError(t, flags.Parse([]string{"--socket", "/tmp/other.sock"}))
	c, err := Load(
		WithFile(writeSettings(t)),
		WithFlag("control.socket", flags.Lookup("socket")),
		WithFlag("server.document_root", flags.Lookup("root")),
	)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.sock", c.Control.Socket)
	assert.Equal(t, "/srv/www", c.Server.DocumentRoot, "unset flag does not override")

	_, err = Load(WithFlag("control.socket", flags.Lookup("none")))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(WithFile(filepath.Join(t.TempDir(), "Settings.toml")))
		assert.Error(t, err)
	})
	t.Run("malformed file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "Settings.toml")
		require.NoError(t, os.WriteFile(p, []byte("[http\nport = "), 0644))
		_, err := Load(WithFile(p))
		assert.Error(t, err)
	})
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, HTTP{Threads: 3}.Workers())
	assert.Equal(t, runtime.GOMAXPROCS(0), HTTP{}.Workers())
	assert.Equal(t, runtime.GOMAXPROCS(0), HTTPS{Threads: -1}.Workers())
}
