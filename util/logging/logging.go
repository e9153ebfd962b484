package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the configuration of the zerolog logger and its writers
type Config struct {
	// WithConsoleLog enables the human readable stderr writer
	WithConsoleLog bool

	// WithColor enables console coloring
	WithColor bool

	// WithLogFile enables the json rolling file writer.
	// The fields below are ignored when false.
	WithLogFile bool

	// Directory hosting the log file, created if missing
	Directory string

	// Filename is the log file name, relative to Directory
	Filename string

	// MaxSize is the max size in MB of the log file before it is rolled
	MaxSize int

	// MaxBackups is the max number of rolled files to keep
	MaxBackups int

	// MaxAge is the max age in days of a rolled file
	MaxAge int

	// Debug lowers the global level to debug
	Debug bool
}

const (
	TimeFormat = "15:04:05.000"
)

var (
	consoleOut io.Writer = os.Stderr
)

// Configure sets up the global zerolog logger and returns it.
//
// A file writer setup failure is reported on the console writer and does
// not prevent logging.
func Configure(c Config) (zerolog.Logger, error) {
	var (
		writers []io.Writer
		errFile error
	)

	if c.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if c.WithConsoleLog {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        consoleOut,
			TimeFormat: TimeFormat,
			NoColor:    !c.WithColor,
		})
	}
	if c.WithLogFile {
		if w, err := newRollingFile(c); err != nil {
			errFile = err
		} else {
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	l := zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	log.Logger = l
	if errFile != nil {
		l.Warn().Err(errFile).Str("dir", c.Directory).Msg("file logging disabled")
	}
	return l, errFile
}

func newRollingFile(c Config) (io.Writer, error) {
	if err := os.MkdirAll(c.Directory, 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.Directory, c.Filename),
		MaxBackups: c.MaxBackups, // files
		MaxSize:    c.MaxSize,    // megabytes
		MaxAge:     c.MaxAge,     // days
	}, nil
}
