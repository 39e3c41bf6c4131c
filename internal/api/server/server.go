package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/remiblancher/smimekit/internal/api/router"
	"github.com/remiblancher/smimekit/internal/logging"
	"github.com/remiblancher/smimekit/internal/metrics"
	"github.com/remiblancher/smimekit/pkg/audit"
)

// Server represents the HTTP server.
type Server struct {
	cfg     *Config
	version string
	log     *logging.Logger
	out     io.Writer
}

// New creates a new Server. A nil logger is built from cfg.
func New(cfg *Config, version string, log *logging.Logger) *Server {
	if log == nil {
		log = cfg.Logger()
	}
	return &Server{
		cfg:     cfg,
		version: version,
		log:     log.With("component", "server"),
		out:     os.Stdout,
	}
}

// Start listens on the configured address and blocks until SIGINT or
// SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done, then shuts down
// gracefully. Audit logging is active for the lifetime of the call.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	events, err := s.initAudit()
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := audit.Close(); err != nil {
			s.log.Error("failed to close audit log", err)
		}
	}()

	routerCfg := &router.Config{
		Version:      s.version,
		Logger:       s.log,
		AuditEvents:  events,
		AuditLog:     s.cfg.AuditLog,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
	}
	if s.cfg.Metrics {
		routerCfg.Metrics = metrics.New()
	}

	srv := &http.Server{
		Handler:      router.New(routerCfg),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.printStartupInfo(ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			errChan <- srv.ServeTLS(ln, s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			errChan <- srv.Serve(ln)
		}
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Info("shutting down")
		return s.shutdown(srv)
	}
}

// initAudit installs the audit writer: an in-memory log for the audit
// endpoint, chained to the configured file when there is one.
func (s *Server) initAudit() (*audit.MemoryWriter, error) {
	events := audit.NewMemoryWriter()
	if s.cfg.AuditLog == "" {
		return events, audit.Init(events)
	}

	file, err := audit.NewFileWriter(s.cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return events, audit.Init(audit.NewMultiWriter(file, events))
}

// shutdown gracefully stops the server.
func (s *Server) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("server stopped gracefully")
	return nil
}

// printStartupInfo prints server startup information.
func (s *Server) printStartupInfo(addr string) {
	scheme := "http"
	if s.cfg.TLSCert != "" {
		scheme = "https"
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "smimekit API Server")
	fmt.Fprintln(s.out, "===================")
	fmt.Fprintf(s.out, "  Version:  %s\n", s.version)
	fmt.Fprintf(s.out, "  Address:  %s://%s\n", scheme, addr)
	if s.cfg.AuditLog != "" {
		fmt.Fprintf(s.out, "  Audit:    %s\n", s.cfg.AuditLog)
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Endpoints:")
	fmt.Fprintln(s.out, "  GET  /health              - Health check")
	fmt.Fprintln(s.out, "  GET  /ready               - Readiness check")
	fmt.Fprintln(s.out, "  GET  /api/openapi.yaml    - OpenAPI specification")
	if s.cfg.Metrics {
		fmt.Fprintln(s.out, "  GET  /metrics             - Prometheus metrics")
	}
	fmt.Fprintln(s.out, "  POST /api/v1/pem/*        - Certificate and key loading")
	fmt.Fprintln(s.out, "  POST /api/v1/pkcs7/*      - Encrypt, decrypt, sign, verify")
	fmt.Fprintln(s.out, "  POST /api/v1/smime/*      - S/MIME write and read")
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Use Ctrl+C to stop")
	fmt.Fprintln(s.out)
}
