package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opensvc/httpd/daemon/ctlcli"
)

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "open an interactive control session with the daemon",
	Long: `Open an interactive control session with the daemon.

The daemon serves one control session at a time. While this session is
open, other clients like 'httpd daemon stop' get no reply and fail with
"control channel busy (another session open)".`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return ctl(ctlcli.New(settings.Control.Socket), os.Stdin, os.Stdout)
	},
}

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	replyColor  = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
)

func init() {
	rootCmd.AddCommand(ctlCmd)
}

func ctlHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "exit - exit the client")
	fmt.Fprintln(w, "help - print this help message")
	fmt.Fprintln(w, "stop - stop the server")
	fmt.Fprintln(w, "Other control clients wait until this session ends.")
}

// ctl reads commands from r until exit, stop or end of input. The help
// and exit commands are local, the others are sent to the daemon.
func ctl(cli *ctlcli.T, r io.Reader, w io.Writer) error {
	session, err := cli.Dial()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	scanner := bufio.NewScanner(r)
	for {
		promptColor.Fprint(w, ">>> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		command := strings.TrimSpace(scanner.Text())
		switch command {
		case "":
			continue
		case "exit":
			return nil
		case "help":
			ctlHelp(w)
			continue
		}
		reply, err := session.Send(command)
		if err != nil {
			errorColor.Fprintln(w, err)
			return err
		}
		replyColor.Fprintln(w, reply)
		if command == "stop" {
			return nil
		}
	}
}
