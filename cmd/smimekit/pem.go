package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var pemCmd = &cobra.Command{
	Use:   "pem",
	Short: "Inspect PEM certificates and private keys",
}

var pemCertsCmd = &cobra.Command{
	Use:   "certs <file>",
	Short: "List the certificates of a PEM file",
	Long: `List every certificate of a PEM file in file order.

A file without any certificate block is not an error; nothing is listed.

Examples:
  smimekit pem certs chain.pem
  cat chain.pem | smimekit pem certs -`,
	Args: cobra.ExactArgs(1),
	RunE: runPEMCerts,
}

var pemKeyCmd = &cobra.Command{
	Use:   "key <file>",
	Short: "Load a PEM private key",
	Long: `Load a private key from a PEM file and print its algorithm.

Encrypted keys need --password.

Examples:
  smimekit pem key alice.key
  smimekit pem key alice-enc.key --password secret`,
	Args: cobra.ExactArgs(1),
	RunE: runPEMKey,
}

var pemKeyPassword string

func init() {
	pemKeyCmd.Flags().StringVar(&pemKeyPassword, "password", "", "Password of an encrypted key")

	pemCmd.AddCommand(pemCertsCmd)
	pemCmd.AddCommand(pemKeyCmd)
}

func runPEMCerts(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	certs, err := newService().ReadCertificates(cmd.Context(), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d certificate(s)\n", len(certs))
	for i, c := range certs {
		x := c.X509()
		fmt.Fprintf(out, "\n[%d]\n", i)
		fmt.Fprintf(out, "  Subject:     %s\n", c.Subject())
		fmt.Fprintf(out, "  Issuer:      %s\n", c.Issuer())
		fmt.Fprintf(out, "  Serial:      %s\n", c.SerialHex())
		fmt.Fprintf(out, "  Fingerprint: %s\n", c.FingerprintHex())
		fmt.Fprintf(out, "  Not Before:  %s\n", x.NotBefore.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "  Not After:   %s\n", x.NotAfter.UTC().Format("2006-01-02 15:04:05 MST"))
		if len(x.EmailAddresses) > 0 {
			fmt.Fprintf(out, "  Emails:      %s\n", strings.Join(x.EmailAddresses, ", "))
		}
	}
	return nil
}

func runPEMKey(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	key, err := newService().ReadPrivateKey(cmd.Context(), data, []byte(pemKeyPassword))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Algorithm: %s\n", key.Algorithm())
	return nil
}
