// Package httpapi exposes the invoice service, session gate and document
// library over a local JSON API.
package httpapi

import (
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invoicedesk/docs/schema/openapi"
	"invoicedesk/internal/core"
	"invoicedesk/internal/documents"
	"invoicedesk/internal/session"
)

// Server wires the HTTP routes to their collaborators.
type Server struct {
	svc      *core.Service
	gate     *session.Gate
	docs     *documents.Library
	gatherer prometheus.Gatherer
	logger   core.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithGatherer sets the registry served at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer constructs a server. The service is expected to follow gate.
func NewServer(svc *core.Service, gate *session.Gate, docs *documents.Library, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		gate:     gate,
		docs:     docs,
		gatherer: prometheus.DefaultGatherer,
		logger:   core.NewZapLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api/v1")
	api.GET("/session", s.getSession)
	api.POST("/session/login", s.login)
	api.POST("/session/logout", s.logout)

	api.GET("/invoices", s.listInvoices)
	api.GET("/invoices/stats", s.invoiceStats)
	api.GET("/invoices/export", s.exportInvoices)
	api.POST("/invoices", s.submitInvoice)
	api.POST("/invoices/seed", s.seedInvoices)
	api.PATCH("/invoices/:id", s.updateInvoice)
	api.DELETE("/invoices/:id", s.deleteInvoice)
	api.POST("/invoices/:id/:action", s.invoiceAction)

	api.GET("/draft", s.getDraft)
	api.PUT("/draft", s.saveDraft)

	api.POST("/documents", s.uploadDocument)
	api.GET("/documents", s.getDocument)

	api.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openapi.APISpec)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}
