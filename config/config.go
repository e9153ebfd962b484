/*
Package config loads the daemon settings.

The settings are read from a toml file, by default Settings.toml searched
in the working directory then in $HOME/.httpd. Every key can be
overridden by a HTTPD_ prefixed environment variable, dots replaced by
underscores, for example HTTPD_HTTP_PORT=8081.
*/
package config

import (
	"errors"
	"net"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/opensvc/httpd/util/funcopt"
)

const (
	// Program is the name of the project
	Program = "httpd"

	// EnvPrefix is the prefix of the environment variables overriding
	// the settings
	EnvPrefix = "HTTPD"
)

type (
	// T is the top level configuration structure
	T struct {
		Server   Server   `mapstructure:"server" json:"server"`
		HTTP     HTTP     `mapstructure:"http" json:"http"`
		HTTPS    HTTPS    `mapstructure:"https" json:"https"`
		Control  Control  `mapstructure:"control" json:"control"`
		Listener Listener `mapstructure:"listener" json:"listener"`
		Log      Log      `mapstructure:"log" json:"log"`
		Metrics  Metrics  `mapstructure:"metrics" json:"metrics"`

		// File is the settings file used, empty if none was found
		File string `mapstructure:"-" json:"file,omitempty"`
	}

	Server struct {
		IP           string `mapstructure:"ip" json:"ip"`
		Domain       string `mapstructure:"domain" json:"domain,omitempty"`
		DocumentRoot string `mapstructure:"document_root" json:"document_root"`
	}

	HTTP struct {
		Enabled  bool   `mapstructure:"enabled" json:"enabled"`
		Port     int    `mapstructure:"port" json:"port"`
		Redirect string `mapstructure:"redirect" json:"redirect,omitempty"`
		Threads  int    `mapstructure:"threads" json:"threads"`
	}

	HTTPS struct {
		Enabled  bool   `mapstructure:"enabled" json:"enabled"`
		Port     int    `mapstructure:"port" json:"port"`
		Redirect string `mapstructure:"redirect" json:"redirect,omitempty"`
		Threads  int    `mapstructure:"threads" json:"threads"`
		SSL      SSL    `mapstructure:"ssl" json:"ssl"`
	}

	SSL struct {
		Identity string `mapstructure:"identity" json:"identity"`
		Password string `mapstructure:"password" json:"password"`
	}

	Control struct {
		Socket       string        `mapstructure:"socket" json:"socket"`
		PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	}

	Listener struct {
		PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	}

	Log struct {
		Console    bool   `mapstructure:"console" json:"console"`
		Color      bool   `mapstructure:"color" json:"color"`
		Dir        string `mapstructure:"dir" json:"dir,omitempty"`
		File       string `mapstructure:"file" json:"file"`
		MaxSize    int    `mapstructure:"max_size" json:"max_size"`
		MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
		MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	}

	Metrics struct {
		Addr  string `mapstructure:"addr" json:"addr,omitempty"`
		Pprof bool   `mapstructure:"pprof" json:"pprof"`
	}

	loader struct {
		file  string
		flags map[string]*pflag.Flag
	}
)

// WithFile sets the settings file. A missing file is then an error.
func WithFile(s string) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*loader)
		t.file = s
		return nil
	})
}

// WithFlag makes the flag, when set on the command line, override the
// settings key.
func WithFlag(key string, f *pflag.Flag) funcopt.O {
	return funcopt.F(func(i interface{}) error {
		t := i.(*loader)
		if f == nil {
			return pkgerrors.Errorf("no flag for key %s", key)
		}
		t.flags[key] = f
		return nil
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ip", "0.0.0.0")
	v.SetDefault("server.domain", "")
	v.SetDefault("server.document_root", ".")
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.redirect", "")
	v.SetDefault("http.threads", 4)
	v.SetDefault("https.enabled", true)
	v.SetDefault("https.port", 8443)
	v.SetDefault("https.redirect", "")
	v.SetDefault("https.threads", 4)
	v.SetDefault("https.ssl.identity", "identity.pfx")
	v.SetDefault("https.ssl.password", "")
	v.SetDefault("control.socket", "/tmp/httpd.sock")
	v.SetDefault("control.poll_interval", 80*time.Millisecond)
	v.SetDefault("listener.poll_interval", 80*time.Millisecond)
	v.SetDefault("listener.read_timeout", 5*time.Second)
	v.SetDefault("log.console", true)
	v.SetDefault("log.color", false)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.file", Program+".log")
	v.SetDefault("log.max_size", 5)
	v.SetDefault("log.max_backups", 1)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.pprof", false)
}

// Load returns the settings merged from defaults, the settings file,
// the environment and the bound flags.
func Load(opts ...funcopt.O) (*T, error) {
	l := &loader{flags: make(map[string]*pflag.Flag)}
	if err := funcopt.Apply(l, opts...); err != nil {
		return nil, err
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, f := range l.flags {
		if err := v.BindPFlag(key, f); err != nil {
			return nil, pkgerrors.Wrapf(err, "bind flag %s", f.Name)
		}
	}
	v.SetConfigType("toml")
	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName("Settings")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+Program))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, pkgerrors.Wrap(err, "read settings")
		}
	}
	t := &T{}
	if err := v.Unmarshal(t); err != nil {
		return nil, pkgerrors.Wrap(err, "parse settings")
	}
	t.File = v.ConfigFileUsed()
	return t, nil
}

// Addr returns the ip:port of a listener on the server ip
func (t T) Addr(port int) string {
	return net.JoinHostPort(t.Server.IP, strconv.Itoa(port))
}

// Workers returns the worker pool size, GOMAXPROCS when threads is not
// positive.
func (t HTTP) Workers() int {
	return workers(t.Threads)
}

// Workers returns the worker pool size, GOMAXPROCS when threads is not
// positive.
func (t HTTPS) Workers() int {
	return workers(t.Threads)
}

func workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
