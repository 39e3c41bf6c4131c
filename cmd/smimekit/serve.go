package main

import (
	"github.com/spf13/cobra"

	"github.com/remiblancher/smimekit/internal/api/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server exposing every operation over HTTP.

Settings come from the --config YAML file, then SMIMEKIT_HOST, SMIMEKIT_PORT
and SMIMEKIT_AUDIT_LOG, then the flags below.

Examples:
  smimekit serve --port 8443
  smimekit serve --config smimekit.yaml --audit-log audit.jsonl
  smimekit serve --tls-cert server.crt --tls-key server.key`,
	RunE: runServe,
}

var (
	serveConfigPath string
	serveHost       string
	servePort       int
	serveTLSCert    string
	serveTLSKey     string
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveConfigPath, "config", "", "Path to YAML configuration file")
	f.StringVar(&serveHost, "host", "", "Host to bind to")
	f.IntVar(&servePort, "port", 0, "Port to listen on")
	f.StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file")
	f.StringVar(&serveTLSKey, "tls-key", "", "TLS private key file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(serveConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if serveTLSCert != "" {
		cfg.TLSCert = serveTLSCert
	}
	if serveTLSKey != "" {
		cfg.TLSKey = serveTLSKey
	}
	if auditLogPath != "" {
		cfg.AuditLog = auditLogPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return server.New(cfg, version, nil).Start()
}
