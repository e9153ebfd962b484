package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	t.Run("file writer", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "log")
		l, err := Configure(Config{
			WithLogFile: true,
			Directory:   dir,
			Filename:    "httpd.log",
			MaxSize:     1,
		})
		require.NoError(t, err)
		l.Info().Str("sub", "test").Msg("hello")
		b, err := os.ReadFile(filepath.Join(dir, "httpd.log"))
		require.NoError(t, err)
		require.Contains(t, string(b), `"message":"hello"`)
		require.Contains(t, string(b), `"sub":"test"`)
	})

	t.Run("console writer and debug level", func(t *testing.T) {
		var buf bytes.Buffer
		consoleOut = &buf
		defer func() { consoleOut = os.Stderr }()
		l, err := Configure(Config{WithConsoleLog: true, Debug: true})
		require.NoError(t, err)
		require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
		l.Debug().Msg("visible")
		require.Contains(t, buf.String(), "visible")
	})

	t.Run("unusable directory", func(t *testing.T) {
		f := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(f, nil, 0644))
		_, err := Configure(Config{WithLogFile: true, Directory: filepath.Join(f, "sub"), Filename: "x.log"})
		require.Error(t, err)
	})
}
