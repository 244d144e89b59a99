package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/dispatcher"
	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/application/service"
	appwf "github.com/garyjia/purchase-approval/internal/application/workflow"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/export"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/mail"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/messaging"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/purchase-approval/internal/infrastructure/storage"
	httpapi "github.com/garyjia/purchase-approval/internal/interfaces/http"
	"github.com/garyjia/purchase-approval/migrations"
	"github.com/garyjia/purchase-approval/pkg/database"
	"github.com/garyjia/purchase-approval/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests    *repository.PurchaseRequestRepository
	Steps       *repository.RequestStepRepository
	Transitions *repository.TransitionStore
	Attachments *repository.AttachmentRepository
	Users       *repository.UserRepository
	Analytics   *repository.AnalyticsRepository
}

// NotifierBundle holds the outbound notification channels.
type NotifierBundle struct {
	Mailer port.Mailer

	// Publisher is nil when no NATS URL is configured
	Publisher *messaging.Publisher
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Attachments   service.AttachmentService
	Analytics     service.AnalyticsService
	Export        service.ExportService
	Notifications service.NotificationService
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database bundle.
func ProvideRepositories(bundle *DatabaseBundle, logger *zap.Logger) (*RepositoryBundle, error) {
	if bundle == nil || bundle.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	sqlDB := bundle.DB.DB
	repos := &RepositoryBundle{
		Requests:    repository.NewPurchaseRequestRepository(sqlDB, logger),
		Steps:       repository.NewRequestStepRepository(sqlDB, logger),
		Attachments: repository.NewAttachmentRepository(sqlDB, logger),
		Users:       repository.NewUserRepository(sqlDB, logger),
		Analytics:   repository.NewAnalyticsRepository(sqlDB, logger),
	}
	repos.Transitions = repository.NewTransitionStore(bundle.TransactionMgr, repos.Requests, repos.Steps)
	return repos, nil
}

// SeedUsers upserts the configured directory entries.
func SeedUsers(ctx context.Context, users *repository.UserRepository, seeds []SeedUser, logger *zap.Logger) error {
	for _, s := range seeds {
		user := &entity.User{
			ID:         s.ID,
			Username:   s.Username,
			Email:      s.Email,
			FullName:   s.FullName,
			Role:       domainwf.Role(s.Role),
			Department: s.Department,
			IsActive:   true,
		}
		if err := users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", s.ID, err)
		}
	}
	if len(seeds) > 0 {
		logger.Info("Directory users seeded", zap.Int("count", len(seeds)))
	}
	return nil
}

// ProvideStorage creates the attachment file store.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	return storage.NewLocalFileStorage(cfg.AttachmentDir, logger)
}

// ProvideNotifierChannels creates the mailer and, when configured, the NATS publisher.
func ProvideNotifierChannels(emailCfg *EmailConfig, natsCfg *NATSConfig, logger *zap.Logger) (*NotifierBundle, error) {
	mailer := mail.NewMailer(emailCfg.Provider, mail.SMTPConfig{
		Host:     emailCfg.SMTPHost,
		Port:     emailCfg.SMTPPort,
		Username: emailCfg.SMTPUsername,
		Password: emailCfg.SMTPPassword,
		From:     emailCfg.From,
		FromName: emailCfg.FromName,
		TLS:      emailCfg.SMTPTLS,
		Timeout:  emailCfg.Timeout,
	}, logger)

	bundle := &NotifierBundle{Mailer: mailer}
	if natsCfg.URL == "" {
		logger.Info("NATS publishing disabled: no url configured")
		return bundle, nil
	}

	publisher, err := messaging.Connect(messaging.Config{
		URL:           natsCfg.URL,
		Name:          natsCfg.Name,
		MaxReconnects: natsCfg.MaxReconnects,
		ReconnectWait: natsCfg.ReconnectWait,
		FlushTimeout:  natsCfg.FlushTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	bundle.Publisher = publisher
	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewSugarAdapter(logger.Named("dispatcher"))))
}

// ProvideEngine creates the transition engine emitting to the dispatcher.
func ProvideEngine(repos *RepositoryBundle, disp dispatcher.Dispatcher, logger *zap.Logger) appwf.Engine {
	return appwf.NewEngine(repos.Requests, repos.Transitions,
		appwf.WithDispatcher(disp),
		appwf.WithLogger(utils.NewSugarAdapter(logger.Named("workflow"))),
	)
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Engine   appwf.Engine
	Repos    *RepositoryBundle
	Storage  port.FileStorage
	Notifier *NotifierBundle
	Config   *Config
	Logger   *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Engine == nil || deps.Repos == nil {
		return nil, fmt.Errorf("engine and repositories are required")
	}
	log := utils.NewSugarAdapter(deps.Logger.Named("service"))
	repos := deps.Repos

	var publisher port.EventPublisher
	if deps.Notifier.Publisher != nil {
		publisher = deps.Notifier.Publisher
	}

	attachments := service.NewAttachmentService(repos.Requests, repos.Attachments, deps.Storage,
		storage.AttachmentPath, deps.Config.Storage.MaxUploadBytes, log)
	analytics := service.NewAnalyticsService(deps.Engine.Policy(), repos.Requests, repos.Steps, repos.Analytics,
		deps.Config.Analytics.Months, log)
	exporter := export.NewXLSXExporter(deps.Logger.Named("export"))

	return &ServiceBundle{
		Requests:      service.NewRequestService(deps.Engine, repos.Requests, repos.Steps, log),
		Attachments:   attachments,
		Analytics:     analytics,
		Export:        service.NewExportService(repos.Requests, exporter, log),
		Notifications: service.NewNotificationService(repos.Requests, repos.Users, deps.Notifier.Mailer, publisher, log),
	}, nil
}

// ProvideHTTPServer creates the API server over the services.
func ProvideHTTPServer(cfg *Config, services *ServiceBundle, health httpapi.HealthReporter, logger *zap.Logger) (*httpapi.Server, error) {
	auth, err := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	serverCfg := httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
	}
	return httpapi.NewServer(serverCfg, httpapi.Services{
		Requests:    services.Requests,
		Attachments: services.Attachments,
		Analytics:   services.Analytics,
		Export:      services.Export,
	}, auth, health, utils.NewSugarAdapter(logger.Named("http"))), nil
}
