package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensvc/httpd/core/identity"
)

var (
	identityOut      string
	identityOptions  identity.Options
	identityPassword string
	identityForce    bool

	identityCmd = &cobra.Command{
		Use:   "identity",
		Short: "Manage the secured listener identity",
	}

	identityCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "create a self signed PKCS#12 identity, by default at https.ssl.identity with https.ssl.password",
		RunE:  identityCreateCmdRun,
	}
)

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityCreateCmd)
	flags := identityCreateCmd.Flags()
	flags.StringVar(&identityOut, "out", "", "identity file path, overrides https.ssl.identity")
	flags.StringVar(&identityPassword, "password", "", "identity passphrase, overrides https.ssl.password")
	flags.StringVar(&identityOptions.CommonName, "cn", "localhost", "certificate common name")
	flags.StringVar(&identityOptions.Organization, "o", "", "certificate organization")
	flags.StringSliceVar(&identityOptions.AltNames, "alt-names", nil, "certificate alternative dns names or ip addresses")
	flags.IntVar(&identityOptions.Bits, "bits", identity.DefaultBits, "rsa key size")
	flags.DurationVar(&identityOptions.Validity, "validity", identity.DefaultValidity, "certificate validity")
	flags.BoolVar(&identityForce, "force", false, "replace an existing identity file")
}

func identityCreateCmdRun(cmd *cobra.Command, _ []string) error {
	p := settings.HTTPS.SSL.Identity
	if identityOut != "" {
		p = identityOut
	}
	password := settings.HTTPS.SSL.Password
	if cmd.Flags().Changed("password") {
		password = identityPassword
	}
	if _, err := os.Stat(p); err == nil && !identityForce {
		return fmt.Errorf("%s already exists, use --force to replace", p)
	}
	if err := identity.Write(p, identityOptions, password); err != nil {
		return err
	}
	fmt.Printf("created %s\n", p)
	return nil
}
