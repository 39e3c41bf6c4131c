package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the accepted option and cipher names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Options:")
		for _, name := range pkcs7.FlagNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out, "Ciphers:")
		for _, name := range pkcs7.CipherNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
	},
}
