package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/application/service"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/idgen"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/repository"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/storage"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/tokenstore"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/worker"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/numbering"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/render"
	"github.com/garyjia/timesheet-invoicing/migrations"
	"github.com/garyjia/timesheet-invoicing/pkg/database"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories
type RepositoryBundle struct {
	Timesheets port.TimesheetRepository
	Templates  port.TemplateRepository
	Invoices   port.InvoiceRepository
	Sequences  port.SequenceRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Invoices  service.InvoiceService
	Lifecycle service.InvoiceLifecycle
	Templates service.TemplateService
}

// ServiceDeps carries what ProvideServices needs
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Documents  port.DocumentStore
	Tokens     port.TokenStore
	TokenTTL   time.Duration
	IDs        service.IDGenerator
	Dispatcher dispatcher.Dispatcher
	Location   *time.Location
	Logger     *zap.Logger
}

// ProvideDatabase opens the database and applies pending migrations
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on one connection pool
func ProvideRepositories(db *database.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Timesheets: repository.NewTimesheetRepository(db.DB, logger),
		Templates:  repository.NewTemplateRepository(db.DB, logger),
		Invoices:   repository.NewInvoiceRepository(db.DB, logger),
		Sequences:  repository.NewSequenceRepository(db.DB, logger),
	}
}

// ProvideFileStorage creates the configured document backend
func ProvideFileStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	switch cfg.Driver {
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info("Using S3 document storage",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix))
		return storage.NewS3FileStorage(client, cfg.S3.Bucket, cfg.S3.Prefix, logger), nil
	case "local":
		logger.Info("Using local document storage", zap.String("base_dir", cfg.BaseDir))
		return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideTokenStore creates the configured action token store
func ProvideTokenStore(ctx context.Context, cfg *TokensConfig, logger *zap.Logger) (port.TokenStore, error) {
	switch cfg.Driver {
	case "redis":
		client, err := tokenstore.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		logger.Info("Using redis token store", zap.String("addr", cfg.RedisAddr))
		return tokenstore.NewRedisStore(client, cfg.RedisPrefix), nil
	case "memory":
		logger.Info("Using in-memory token store")
		return tokenstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown token driver %q", cfg.Driver)
	}
}

// ProvideIDGenerator creates the invoice id generator
func ProvideIDGenerator(cfg *InvoiceConfig) (service.IDGenerator, error) {
	ids, err := idgen.NewSnowflake(cfg.NodeID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ProvideServices creates the application services
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	log := &zapLoggerAdapter{logger: deps.Logger}
	calculators := calculator.DefaultRegistry()
	renderers := render.DefaultRegistry()

	marker := service.NewExportMarker(deps.Repos.Timesheets, deps.Repos.Invoices, deps.TxManager)
	guard := service.NewActionTokenGuard(deps.Tokens, deps.TokenTTL, nil, deps.Dispatcher, log)

	return &ServiceBundle{
		Invoices: service.NewInvoiceService(service.InvoiceDependencies{
			Selector:    service.NewTimesheetSelector(deps.Repos.Timesheets),
			Templates:   deps.Repos.Templates,
			Invoices:    deps.Repos.Invoices,
			Calculators: calculators,
			Renderers:   renderers,
			Numbers:     numbering.NewGenerator(deps.Repos.Sequences),
			Marker:      marker,
			Documents:   deps.Documents,
			Guard:       guard,
			TxManager:   deps.TxManager,
			IDs:         deps.IDs,
			Dispatcher:  deps.Dispatcher,
			Logger:      log,
			Location:    deps.Location,
		}),
		Lifecycle: service.NewInvoiceLifecycle(service.LifecycleDependencies{
			Invoices:   deps.Repos.Invoices,
			Marker:     marker,
			Documents:  deps.Documents,
			Guard:      guard,
			TxManager:  deps.TxManager,
			Dispatcher: deps.Dispatcher,
			Logger:     log,
			Location:   deps.Location,
		}),
		Templates: service.NewTemplateService(deps.Repos.Templates, deps.Repos.Invoices, calculators, renderers, log),
	}
}

// ProvideWorkers registers the background workers
func ProvideWorkers(cfg *TokensConfig, tokens port.TokenStore, logger *zap.Logger) *worker.Manager {
	workers := worker.NewManager(logger)
	workers.Register(worker.NewTokenSweeper(worker.TokenSweeperConfig{
		Interval: cfg.SweepInterval,
	}, tokens, logger))
	return workers
}
