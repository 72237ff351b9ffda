// Package http provides the HTTP and WebSocket adapter for the application layer.
// It is a thin layer translating requests into session and service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/service"
	"github.com/garyjia/club-expenses/internal/application/session"
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
	ReadyTimeout   time.Duration // How long a request waits for a loading session
	MaxUploadBytes int64
	AllowedOrigins []string // WebSocket origins; empty means same-origin only
	ReceiptsPath   string   // Public path receipts are served under
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		ReadyTimeout:   5 * time.Second,
		MaxUploadBytes: 10 << 20,
		ReceiptsPath:   "/receipts",
	}
}

// SessionManager resolves session tokens to live sessions
type SessionManager interface {
	SignIn(ctx context.Context, credential string) (*session.Session, error)
	Lookup(ctx context.Context, token string) (*session.Session, error)
	SignOut(ctx context.Context, token string) error
}

// Services bundles what the handlers call into
type Services struct {
	Sessions SessionManager
	Expenses service.ExpenseService
	Clubs    service.ClubService
	Requests service.RequestService
	Receipts port.ReceiptStorage
	Reports  port.ReportWriter
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware logs one line per request
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		fields := []interface{}{
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if sess, ok := c.Get(sessionKey); ok {
			fields = append(fields, "principal_id", sess.(*session.Session).Principal.ID)
		}
		s.logger.Info("HTTP request", fields...)
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config, s.logger)
	stream := NewStreamHandler(s.config.AllowedOrigins, s.logger)

	s.router.GET("/health", h.HealthCheck)
	s.router.GET(s.config.ReceiptsPath+"/*name", h.ServeReceipt)

	api := s.router.Group("/api")
	api.POST("/auth/sign-in", h.SignIn)

	authed := api.Group("", requireSession(s.services.Sessions))
	{
		authed.POST("/auth/sign-out", h.SignOut)
		authed.GET("/session", h.GetSession)
		authed.GET("/session/stream", stream.Stream)

		authed.GET("/expenses", h.ListExpenses)
		authed.POST("/expenses", h.SubmitExpense)
		authed.GET("/expenses/summary", h.Summary)
		authed.GET("/expenses/export", h.ExportExpenses)
		authed.POST("/expenses/prioritize", h.Prioritize)
		authed.GET("/expenses/prioritize", h.PrioritizeState)
		authed.PUT("/expenses/:id/status", h.SetExpenseStatus)
		authed.POST("/expenses/:id/flag", h.FlagExpense)
		authed.POST("/expenses/:id/comment", h.CommentExpense)

		authed.POST("/clubs", h.RegisterClub)

		authed.POST("/requests", h.SubmitRequest)
		authed.POST("/requests/:id/approve", h.ApproveRequest)
		authed.POST("/requests/:id/reject", h.RejectRequest)

		authed.POST("/receipts", h.UploadReceipt)
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

	s.logger.Info("Stopping HTTP server")

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
