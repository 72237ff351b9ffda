package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/service"
	"github.com/garyjia/club-expenses/internal/application/session"
	"github.com/garyjia/club-expenses/internal/infrastructure/worker"
	httpiface "github.com/garyjia/club-expenses/internal/interfaces/http"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database *DatabaseBundle
	identity *IdentityBundle

	// Infrastructure - External
	ranker   port.ExpenseRanker
	notifier port.Notifier

	// Infrastructure - Files
	receipts port.ReceiptStorage
	reports  port.ReportWriter

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	sessions   *session.Manager

	// Interfaces
	server *httpiface.Server

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Expenses      service.ExpenseService
	Clubs         service.ClubService
	Requests      service.RequestService
	Notifications *service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins background processing.
// Components are initialized in dependency order:
// 1. Database, migrations and document store
// 2. Identity verifier and session token store
// 3. External clients (OpenAI, Lark)
// 4. Receipt storage and report writer
// 5. Event dispatcher and application services
// 6. Session manager and HTTP server
// 7. Workers
//
// A failed step releases whatever the earlier steps acquired.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"identity", c.initIdentity},
		{"external clients", c.initExternalClients},
		{"storage", c.initStorage},
		{"services", c.initServices},
		{"interfaces", c.initInterfaces},
		{"workers", c.initWorkers},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases every initialized component, newest first.
func (c *Container) teardown() []error {
	var errs []error
	record := func(name string, err error) {
		if err != nil {
			c.logger.Error("Failed to close component", zap.String("component", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			return
		}
		c.logger.Info("Component closed", zap.String("component", name))
	}

	if c.workers != nil {
		record("workers", c.workers.StopAll())
		c.workers = nil
	}

	if c.server != nil {
		record("http server", c.server.Stop())
		c.server = nil
	}

	if c.sessions != nil {
		record("sessions", c.sessions.Close())
		c.sessions = nil
	}

	if c.dispatcher != nil {
		record("dispatcher", c.dispatcher.Close())
		c.dispatcher = nil
	}
	c.services = nil

	if c.identity != nil {
		record("session store", c.identity.Tokens.Close())
		c.identity = nil
	}

	if c.database != nil {
		record("document store", c.database.Store.Close())
		record("database", c.database.DB.Close())
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	if c.database != nil {
		set("database", c.database.DB.PingContext(ctx))
	} else {
		set("database", fmt.Errorf("not initialized"))
	}

	if c.identity != nil {
		set("redis", c.identity.Tokens.Ping(ctx))
	} else {
		set("redis", fmt.Errorf("not initialized"))
	}

	if c.workers != nil {
		running := c.workers.Running()
		if len(running) == 0 {
			set("workers", fmt.Errorf("no workers running"))
		} else {
			status.Components["workers"] = ComponentHealth{
				Healthy: true,
				Message: fmt.Sprintf("running: %v", running),
			}
		}
	} else {
		set("workers", fmt.Errorf("not initialized"))
	}

	if c.dispatcher != nil {
		set("dispatcher", nil)
	} else {
		set("dispatcher", fmt.Errorf("not initialized"))
	}

	notifications := ComponentHealth{Healthy: true, Message: "disabled"}
	if c.notifier != nil {
		notifications.Message = "enabled"
	}
	status.Components["notifications"] = notifications

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle
	return nil
}

func (c *Container) initIdentity(context.Context) error {
	bundle, err := ProvideIdentity(&c.config.Session)
	if err != nil {
		return err
	}
	c.identity = bundle
	return nil
}

func (c *Container) initExternalClients(context.Context) error {
	ranker, err := ProvideRanker(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.ranker = ranker
	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	return nil
}

func (c *Container) initStorage(context.Context) error {
	c.receipts = ProvideReceiptStorage(&c.config.Storage, c.logger)
	c.reports = ProvideReportWriter(c.logger)
	return nil
}

func (c *Container) initServices(context.Context) error {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.services = ProvideServices(&ServiceDeps{
		Store:      c.database.Store,
		TxManager:  c.database.TxManager,
		Dispatcher: c.dispatcher,
		Notifier:   c.notifier,
		Logger:     c.logger,
	})
	return nil
}

func (c *Container) initInterfaces(context.Context) error {
	c.sessions = ProvideSessions(c.identity, c.database.Store, c.ranker, c.logger)

	serverCfg := httpiface.ServerConfig{
		Host:           c.config.Server.Host,
		Port:           c.config.Server.Port,
		ReadTimeout:    c.config.Server.ReadTimeout,
		WriteTimeout:   c.config.Server.WriteTimeout,
		ReadyTimeout:   c.config.Server.ReadyTimeout,
		MaxUploadBytes: c.config.Storage.MaxUploadBytes,
		AllowedOrigins: c.config.Server.AllowedOrigins,
		ReceiptsPath:   c.config.Storage.ReceiptURLPath,
	}

	c.server = httpiface.NewServer(serverCfg, httpiface.Services{
		Sessions: c.sessions,
		Expenses: c.services.Expenses,
		Clubs:    c.services.Clubs,
		Requests: c.services.Requests,
		Receipts: c.receipts,
		Reports:  c.reports,
	}, newLogAdapter(c.logger))
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = ProvideWorkers(c.sessions, &c.config.Session, c.logger)
	return c.workers.StartAll(ctx)
}

// Server returns the HTTP server.
func (c *Container) Server() *httpiface.Server {
	return c.server
}

// Sessions returns the session manager.
func (c *Container) Sessions() *session.Manager {
	return c.sessions
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Store returns the document store.
func (c *Container) Store() port.DocumentStore {
	if c.database == nil {
		return nil
	}
	return c.database.Store
}
