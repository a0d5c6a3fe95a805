package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/metrics"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/storage"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/worker"
	"github.com/garyjia/timesheet-invoicing/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	location *time.Location

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	files     port.FileStorage
	documents port.DocumentStore
	tokens    port.TokenStore

	dispatcher dispatcher.Dispatcher
	metrics    *metrics.InvoiceMetrics
	services   *ServiceBundle

	workers *worker.Manager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// Call Start to initialize the components.
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

// Start initializes all components and starts the workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	loc, err := time.LoadLocation(c.config.Invoice.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}
	c.location = loc

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"database", c.initDatabase},
		{"storage", c.initStorage},
		{"tokens", c.initTokens},
		{"dispatcher", c.initDispatcher},
		{"services", c.initServices},
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

// Close gracefully shuts down all components in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	failed := c.teardown()
	c.closed.Store(true)
	c.ready.Store(false)

	if failed > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", failed))
		return fmt.Errorf("container closed with %d errors", failed)
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever Start managed to initialize
func (c *Container) teardown() int {
	var failed int

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			failed++
		}
		c.workers = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			failed++
		}
		c.dispatcher = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			failed++
		}
		c.db = nil
	}
	return failed
}

// Ready returns true when all components are initialized
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.db == nil:
		set("database", false, "not initialized")
	default:
		if err := c.db.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers == nil {
		set("workers", false, "not initialized")
	} else {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	}

	set("dispatcher", c.dispatcher != nil, "")
	set("services", c.services != nil, "")
	return status
}

func (c *Container) initDatabase(_ context.Context) error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr
	c.repositories = ProvideRepositories(c.db, c.logger)
	return nil
}

func (c *Container) initStorage(ctx context.Context) error {
	files, err := ProvideFileStorage(ctx, &c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.files = files
	c.documents = storage.NewDocumentStore(files, c.logger)
	return nil
}

func (c *Container) initTokens(ctx context.Context) error {
	tokens, err := ProvideTokenStore(ctx, &c.config.Tokens, c.logger)
	if err != nil {
		return err
	}
	c.tokens = tokens
	return nil
}

func (c *Container) initDispatcher(_ context.Context) error {
	c.dispatcher = ProvideDispatcher(c.logger)

	if !c.config.Metrics.Enabled {
		return nil
	}
	m, err := metrics.NewInvoiceMetrics(metrics.Config{
		ServiceName: c.config.Metrics.ServiceName,
		Environment: c.config.Metrics.Environment,
	})
	if err != nil {
		return err
	}
	m.Subscribe(c.dispatcher)
	c.metrics = m
	return nil
}

func (c *Container) initServices(_ context.Context) error {
	ids, err := ProvideIDGenerator(&c.config.Invoice)
	if err != nil {
		return err
	}

	c.services = ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Documents:  c.documents,
		Tokens:     c.tokens,
		TokenTTL:   c.config.Tokens.TTL,
		IDs:        ids,
		Dispatcher: c.dispatcher,
		Location:   c.location,
		Logger:     c.logger,
	})
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = ProvideWorkers(&c.config.Tokens, c.tokens, c.logger)
	return c.workers.StartAll(ctx)
}

// Services returns all application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// MetricsHandler serves the Prometheus registry, or nil when metrics are off
func (c *Container) MetricsHandler() http.Handler {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Handler()
}

// Location returns the timezone invoice dates are computed in
func (c *Container) Location() *time.Location {
	return c.location
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key/value Logger interfaces of
// the application layer
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// Logger is the key/value logging surface of the application layer
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NewLoggerAdapter wraps logger for the application and transport layers
func NewLoggerAdapter(logger *zap.Logger) Logger {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
