package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/dispatcher"
	"github.com/garyjia/purchase-approval/internal/application/port"
	appwf "github.com/garyjia/purchase-approval/internal/application/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/telemetry"
	httpapi "github.com/garyjia/purchase-approval/internal/interfaces/http"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	shutdownTracing telemetry.ShutdownFunc
	database        *DatabaseBundle
	repositories    *RepositoryBundle
	fileStorage     port.FileStorage
	notifier        *NotifierBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     appwf.Engine
	services   *ServiceBundle

	// Interfaces
	server *httpapi.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
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

// Start initializes all components:
// 1. Tracing
// 2. Database, migrations and repositories
// 3. Attachment storage
// 4. Notification channels (mail, NATS)
// 5. Dispatcher and transition engine
// 6. Application services, with notification handlers registered
// 7. HTTP server
//
// On failure the components already started are closed again.
func (c *Container) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	defer func() {
		if err != nil {
			c.teardown()
		}
	}()

	c.logger.Info("Starting container initialization")

	c.shutdownTracing, err = telemetry.Setup(ctx, telemetry.Config{
		Enabled:     c.config.Telemetry.Enabled,
		Endpoint:    c.config.Telemetry.Endpoint,
		ServiceName: c.config.Telemetry.ServiceName,
		SampleRatio: c.config.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err = c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	if c.fileStorage, err = ProvideStorage(&c.config.Storage, c.logger); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized", zap.String("dir", c.config.Storage.AttachmentDir))

	if c.notifier, err = ProvideNotifierChannels(&c.config.Email, &c.config.NATS, c.logger); err != nil {
		return fmt.Errorf("failed to initialize notification channels: %w", err)
	}
	c.logger.Info("Notification channels initialized",
		zap.String("mailer", c.notifier.Mailer.Name()),
		zap.Bool("nats", c.notifier.Publisher != nil))

	c.dispatcher = ProvideDispatcher(c.logger)
	c.engine = ProvideEngine(c.repositories, c.dispatcher, c.logger)
	c.logger.Info("Dispatcher and transition engine initialized")

	if c.services, err = ProvideServices(&ServiceDeps{
		Engine:   c.engine,
		Repos:    c.repositories,
		Storage:  c.fileStorage,
		Notifier: c.notifier,
		Config:   c.config,
		Logger:   c.logger,
	}); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services.Notifications.Register(c.dispatcher)
	c.logger.Info("Application services initialized")

	if c.server, err = ProvideHTTPServer(c.config, c.services, c, c.logger); err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle

	if c.repositories, err = ProvideRepositories(bundle, c.logger); err != nil {
		return err
	}
	return SeedUsers(ctx, c.repositories.Users, c.config.SeedUsers, c.logger)
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
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been started; callers hold mu
func (c *Container) teardown() []error {
	var errs []error

	// Pending notifications finish before their channels close
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.notifier != nil && c.notifier.Publisher != nil {
		if err := c.notifier.Publisher.Close(); err != nil {
			c.logger.Error("Failed to close NATS publisher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close nats: %w", err))
		} else {
			c.logger.Info("NATS publisher closed")
		}
		c.notifier.Publisher = nil
	}

	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.database = nil
	}

	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(context.Background()); err != nil {
			c.logger.Error("Failed to flush traces", zap.Error(err))
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		c.shutdownTracing = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	for name, err := range c.HealthCheck(ctx) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			continue
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}
	return status
}

// HealthCheck reports an error per unhealthy component
func (c *Container) HealthCheck(ctx context.Context) map[string]error {
	result := map[string]error{}

	if c.database != nil {
		if err := c.database.DB.PingContext(ctx); err != nil {
			result["database"] = fmt.Errorf("ping failed: %w", err)
		} else {
			result["database"] = nil
		}
	} else {
		result["database"] = fmt.Errorf("not initialized")
	}

	if c.dispatcher != nil {
		result["dispatcher"] = nil
	} else {
		result["dispatcher"] = fmt.Errorf("not initialized")
	}

	if c.notifier != nil && c.notifier.Publisher != nil {
		result["nats"] = c.notifier.Publisher.HealthCheck()
	}

	return result
}

// Getters for accessing container components

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Engine returns the transition engine.
func (c *Container) Engine() appwf.Engine {
	return c.engine
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
