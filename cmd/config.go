package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings",
	}

	configPrintCmd = &cobra.Command{
		Use:   "print",
		Short: "print the merged settings as json, the identity password redacted",
		RunE:  configPrintCmdRun,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPrintCmd)
}

func configPrintCmdRun(_ *cobra.Command, _ []string) error {
	c := *settings
	if c.HTTPS.SSL.Password != "" {
		c.HTTPS.SSL.Password = "xxx"
	}
	b, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
