// Package http exposes the invoice services over HTTP+JSON.
// Handlers only translate requests; all rules live in the application layer.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-invoicing/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	RateLimit      RateLimitConfig
	Location       *time.Location
}

// RateLimitConfig bounds how often one operator may preview or commit
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		RateLimit: RateLimitConfig{
			PerSecond: 2,
			Burst:     5,
		},
		Location: time.UTC,
	}
}

// Services are the application services behind the API
type Services struct {
	Invoices  service.InvoiceService
	Lifecycle service.InvoiceLifecycle
	Templates service.TemplateService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	metrics    http.Handler
	logger     Logger
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(config ServerConfig, services Services, metrics http.Handler, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if config.Location == nil {
		config.Location = time.UTC
	}

	s := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		metrics:  metrics,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, OperatorHeader)
	corsConfig.ExposeHeaders = []string{"Content-Disposition", PreviewTokenHeader}
	if len(s.config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = s.config.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	s.router.Use(cors.New(corsConfig))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"operator", c.GetString(operatorKey),
		)
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.Location, s.logger)
	limiter := newOperatorLimiter(s.config.RateLimit)

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/api", requireOperator())
	{
		api.GET("/templates", h.ListTemplates)
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates/:id", h.GetTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)
		api.POST("/templates/:id/copy", h.CopyTemplate)

		api.GET("/invoices/selection", h.PrepareInvoice)
		api.POST("/invoices/preview", limiter.Limit(), h.PreviewInvoice)
		api.POST("/invoices", limiter.Limit(), h.CreateInvoice)
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/export", h.ExportInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.GET("/invoices/:id/document", h.DownloadDocument)
		api.GET("/invoices/:id/confirm", h.IssueConfirmation)
		api.POST("/invoices/:id/status", h.ChangeStatus)
		api.PUT("/invoices/:id/payment-date", h.UpdatePaymentDate)
		api.DELETE("/invoices/:id", h.DeleteInvoice)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
