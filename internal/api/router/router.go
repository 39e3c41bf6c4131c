// Package router provides HTTP routing configuration using Chi.
package router

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/smimekit/internal/api/handler"
	"github.com/remiblancher/smimekit/internal/api/middleware"
	"github.com/remiblancher/smimekit/internal/api/service"
	"github.com/remiblancher/smimekit/internal/logging"
	"github.com/remiblancher/smimekit/internal/metrics"
	"github.com/remiblancher/smimekit/pkg/audit"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Config holds router configuration.
type Config struct {
	Version string
	Logger  *logging.Logger

	// Metrics enables /metrics and request instrumentation when set.
	Metrics *metrics.Metrics

	// AuditEvents backs GET /api/v1/audit/logs; AuditLog is the chained
	// file checked by POST /api/v1/audit/verify.
	AuditEvents *audit.MemoryWriter
	AuditLog    string

	// MaxBodyBytes bounds request bodies; zero means unlimited.
	MaxBodyBytes int64
}

// components lists what /health reports.
func (c *Config) components() []string {
	out := []string{"pkcs7", "smime"}
	if c.AuditEvents != nil || c.AuditLog != "" {
		out = append(out, "audit")
	}
	if c.Metrics != nil {
		out = append(out, "metrics")
	}
	return out
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.CORS)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// Health endpoints (always enabled)
	healthHandler := handler.NewHealthHandler(cfg.Version, cfg.components())
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// OpenAPI spec
	r.Get("/api/openapi.yaml", serveOpenAPISpec)

	svc := service.New(log, cfg.Metrics)
	pemHandler := handler.NewPEMHandler(svc)
	pkcs7Handler := handler.NewPKCS7Handler(svc)
	smimeHandler := handler.NewSMIMEHandler(svc)
	auditHandler := handler.NewAuditHandler(cfg.AuditEvents, cfg.AuditLog)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

		r.Get("/options", healthHandler.Options)

		r.Route("/pem", func(r chi.Router) {
			r.Post("/certificates", pemHandler.Certificates)
			r.Post("/key", pemHandler.Key)
		})

		r.Route("/pkcs7", func(r chi.Router) {
			r.Post("/encrypt", pkcs7Handler.Encrypt)
			r.Post("/decrypt", pkcs7Handler.Decrypt)
			r.Post("/sign", pkcs7Handler.Sign)
			r.Post("/verify", pkcs7Handler.Verify)
		})

		r.Route("/smime", func(r chi.Router) {
			r.Post("/write", smimeHandler.Write)
			r.Post("/read", smimeHandler.Read)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/logs", auditHandler.Logs)
			r.Post("/verify", auditHandler.Verify)
		})
	})

	return r
}

// serveOpenAPISpec serves the OpenAPI specification file.
func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}
