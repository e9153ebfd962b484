package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opensvc/httpd/daemon/ctlcli"
	"github.com/opensvc/httpd/daemon/daemon"
	"github.com/opensvc/httpd/daemon/daemonsys"
)

type (
	// unitManager is the systemd unit the stop is forwarded to
	unitManager interface {
		Activated(ctx context.Context) (bool, error)
		CalledFromManager() bool
		Close() error
		Defined(ctx context.Context) (bool, error)
		Stop(ctx context.Context) error
		Unit() string
	}
)

var (
	// unitStopTimeout bounds the wait of the systemd stop job
	unitStopTimeout = 30 * time.Second
)

var (
	daemonCmd = &cobra.Command{
		Use:   "daemon",
		Short: "Manage the httpd daemon",
	}

	daemonRunCmd = &cobra.Command{
		Use:   "run",
		Short: "run the daemon in foreground until stopped",
		RunE:  daemonRunCmdRun,
	}

	daemonStopCmd = &cobra.Command{
		Use:   "stop",
		Short: "stop the running daemon",
		RunE:  daemonStopCmdRun,
	}

	daemonRunningCmd = &cobra.Command{
		Use:   "running",
		Short: "exit 0 if the daemon is running, 1 if not",
		RunE:  daemonRunningCmdRun,
	}
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(
		daemonRunCmd,
		daemonStopCmd,
		daemonRunningCmd,
	)
}

func daemonRunCmdRun(_ *cobra.Command, _ []string) error {
	if ctlcli.New(settings.Control.Socket).Running() {
		return fmt.Errorf("daemon already running on %s", settings.Control.Socket)
	}
	if err := daemon.Run(settings); err != nil {
		log.Logger.Error().Err(err).Msg("daemon run")
		return err
	}
	return nil
}

func daemonStopCmdRun(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), unitStopTimeout)
	defer cancel()
	var mgr unitManager
	if sys, err := daemonsys.New(ctx, daemonsys.DefaultUnit); err != nil {
		log.Debug().Err(err).Msg("no systemd connection")
	} else {
		mgr = sys
	}
	reply, err := stopDaemon(ctx, mgr, ctlcli.New(settings.Control.Socket))
	if err != nil {
		return err
	}
	if reply != "" {
		fmt.Println(reply)
	}
	return nil
}

// stopDaemon forwards the stop to the systemd unit when the unit is
// active and the cli is not itself run by systemd. Else the stop
// command is sent on the control channel.
func stopDaemon(ctx context.Context, mgr unitManager, cli *ctlcli.T) (string, error) {
	if mgr == nil {
		log.Debug().Msg("stop: origin os")
		return cli.Stop()
	}
	defer func() { _ = mgr.Close() }()
	if ok, err := mgr.Defined(ctx); err != nil || !ok {
		log.Debug().Msg("stop: origin os, no unit defined")
		return cli.Stop()
	}
	if mgr.CalledFromManager() {
		log.Debug().Msg("stop: origin manager")
		return cli.Stop()
	}
	ok, err := mgr.Activated(ctx)
	if err != nil {
		return "", fmt.Errorf("stop with manager: can't detect activated state: %w", err)
	}
	if !ok {
		log.Debug().Msgf("stop: %s not activated", mgr.Unit())
		return cli.Stop()
	}
	log.Info().Msgf("stop: forward to %s", mgr.Unit())
	if err := mgr.Stop(ctx); err != nil {
		return "", fmt.Errorf("stop with manager: %w", err)
	}
	return fmt.Sprintf("Stopped %s.", mgr.Unit()), nil
}

func daemonRunningCmdRun(_ *cobra.Command, _ []string) error {
	if !ctlcli.New(settings.Control.Socket).Running() {
		return fmt.Errorf("daemon not running")
	}
	fmt.Println("running")
	return nil
}
