// Package cmd defines the httpd command line actions and options.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/opensvc/httpd/config"
	"github.com/opensvc/httpd/util/logging"
)

var (
	configFlag string
	socketFlag string
	debugFlag  bool

	// settings is loaded before any sub command runs
	settings *config.T
)

var rootCmd = &cobra.Command{
	Use:               config.Program,
	Short:             "Serve a document root over http and https, controlled through a local socket.",
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRunE,
}

func persistentPreRunE(cmd *cobra.Command, _ []string) error {
	var err error
	settings, err = config.Load(
		config.WithFile(configFlag),
		config.WithFlag("control.socket", cmd.Flags().Lookup("socket")),
	)
	if err != nil {
		return err
	}
	// a log file setup failure is already reported on the console
	_, _ = logging.Configure(logging.Config{
		WithConsoleLog: settings.Log.Console,
		WithColor:      settings.Log.Color,
		WithLogFile:    settings.Log.Dir != "",
		Directory:      settings.Log.Dir,
		Filename:       settings.Log.File,
		MaxSize:        settings.Log.MaxSize,
		MaxBackups:     settings.Log.MaxBackups,
		MaxAge:         settings.Log.MaxAge,
		Debug:          debugFlag,
	})
	logf := func(format string, args ...interface{}) {
		log.Logger.Debug().Msgf(format, args...)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(logf)); err != nil {
		log.Logger.Debug().Err(err).Msg("maxprocs")
	}
	if settings.File != "" {
		log.Logger.Debug().Msgf("using settings file %s", settings.File)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "settings file (default \"Settings.toml\" in the working directory or $HOME/.httpd)")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "control socket path, overrides control.socket")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "show debug log")
}
