// Command smimekit encrypts, decrypts, signs and verifies PKCS7 messages and
// converts them to and from S/MIME.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/smimekit/internal/api/service"
	"github.com/remiblancher/smimekit/internal/logging"
	"github.com/remiblancher/smimekit/pkg/audit"
	"github.com/remiblancher/smimekit/pkg/errstack"
)

// Build-time variables
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	auditLogPath string
	logLevel     string
	logFormat    string
)

// cliLog is set up before every command runs.
var cliLog = logging.Discard()

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smimekit",
	Short: "PKCS7 and S/MIME secure messaging toolkit",
	Long: `smimekit encrypts, decrypts, signs and verifies PKCS7 structures against
X.509 certificates and private keys, and converts them to and from S/MIME.

Options are passed by name with --options (or -O), for example
"-O detached,binary". Run "smimekit options" for the full list.

Examples:
  # Sign a file, producing a detached signature
  smimekit sign --cert alice.crt --key alice.key --in msg.txt -O detached --out msg.p7s

  # Wrap it as multipart/signed S/MIME
  smimekit smime write msg.p7s --data msg.txt -O detached --out msg.eml

  # Read it back and verify
  smimekit smime read msg.eml --out msg.p7s --content-out msg.txt
  smimekit verify msg.p7s --data msg.txt --ca root.crt -O binary

  # Encrypt for two recipients
  smimekit encrypt --recipient bob.crt --recipient carol.crt --in secret.txt -O binary --out secret.p7m`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cliLog = logging.Discard()
		if logLevel != "" {
			cliLog = logging.New(logging.Options{
				Level:  logLevel,
				Format: logging.Format(logFormat),
				Output: cmd.ErrOrStderr(),
			})
		}

		// Check for audit log path from environment if not set via flag
		if auditLogPath == "" {
			auditLogPath = os.Getenv("SMIMEKIT_AUDIT_LOG")
		}

		// The server owns its audit writer.
		if cmd == serveCmd {
			return nil
		}
		if err := audit.InitFile(auditLogPath); err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set SMIMEKIT_AUDIT_LOG env var)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: no logging)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(pemCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(smimeCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
}

// newService builds the service used by one command run.
func newService() *service.Service {
	return service.New(cliLog, nil)
}

// printError prints one line per error record, or the error itself when it
// carries no record stack.
func printError(w io.Writer, err error) {
	var e *errstack.Error
	if !errors.As(err, &e) {
		fmt.Fprintln(w, "Error:", err)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", e.Kind)
	for _, r := range e.Records() {
		fmt.Fprintln(w, " ", r.String())
	}
}
