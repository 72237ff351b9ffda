package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/prioritization"
	"github.com/garyjia/club-expenses/internal/application/service"
	"github.com/garyjia/club-expenses/internal/application/session"
	"github.com/garyjia/club-expenses/internal/infrastructure/export"
	infraLark "github.com/garyjia/club-expenses/internal/infrastructure/external/lark"
	"github.com/garyjia/club-expenses/internal/infrastructure/external/openai"
	"github.com/garyjia/club-expenses/internal/infrastructure/identity"
	"github.com/garyjia/club-expenses/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/club-expenses/internal/infrastructure/storage"
	"github.com/garyjia/club-expenses/internal/infrastructure/worker"
	"github.com/garyjia/club-expenses/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB        *database.DB
	TxManager *sqlite.DB
	Store     *sqlite.DocumentStore
}

// IdentityBundle holds identity verification and session token components.
type IdentityBundle struct {
	Verifier *identity.TokenVerifier
	Tokens   *identity.RedisSessionStore
}

// ProvideDatabase opens the database, applies pending migrations and
// creates the document store.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
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

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(ctx, cfg.MigrationsDir)
	} else {
		err = migrator.RunEmbedded(ctx)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txManager := sqlite.NewDB(db.DB, logger)
	return &DatabaseBundle{
		DB:        db,
		TxManager: txManager,
		Store:     sqlite.NewDocumentStore(txManager, logger),
	}, nil
}

// ProvideIdentity creates the ID token verifier and the Redis session store.
func ProvideIdentity(cfg *SessionConfig) (*IdentityBundle, error) {
	verifier, err := identity.NewTokenVerifier(identity.VerifierConfig{
		SigningKey: cfg.SigningKey,
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.Leeway,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := identity.NewRedisSessionStore(cfg.RedisURL, cfg.TTL)
	if err != nil {
		return nil, err
	}

	return &IdentityBundle{Verifier: verifier, Tokens: tokens}, nil
}

// ProvideRanker creates the OpenAI expense ranker.
func ProvideRanker(cfg *OpenAIConfig, logger *zap.Logger) (port.ExpenseRanker, error) {
	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return openai.NewRanker(openai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}, prompts, logger), nil
}

// ProvideNotifier creates the Lark chat notifier, or nil when
// notifications are disabled.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) port.Notifier {
	if cfg.ChatID == "" {
		logger.Info("Lark chat not configured, notifications disabled")
		return nil
	}
	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		ChatID:    cfg.ChatID,
		Timeout:   cfg.APITimeout,
	}, logger)
	return infraLark.NewChatNotifier(client, cfg.ChatID, logger)
}

// ProvideReceiptStorage creates the local receipt store.
func ProvideReceiptStorage(cfg *StorageConfig, logger *zap.Logger) port.ReceiptStorage {
	return storage.NewReceiptStorage(cfg.ReceiptDir, cfg.ReceiptURLPath, int(cfg.MaxUploadBytes), logger)
}

// ProvideReportWriter creates the Excel expense report writer.
func ProvideReportWriter(logger *zap.Logger) port.ReportWriter {
	return export.NewExcelReportWriter(logger)
}

// ProvideDispatcher creates the domain event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(newLogAdapter(logger)))
}

// ServiceDeps holds the dependencies of the application services.
type ServiceDeps struct {
	Store      port.DocumentStore
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Logger     *zap.Logger
}

// ProvideServices creates all application services and registers the
// notification handler when a notifier is configured.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	log := newLogAdapter(deps.Logger)

	bundle := &ServiceBundle{
		Expenses: service.NewExpenseService(deps.Store, deps.Dispatcher, log),
		Clubs:    service.NewClubService(deps.Store, deps.Dispatcher, log),
		Requests: service.NewRequestService(deps.Store, deps.TxManager, deps.Dispatcher, log),
	}

	if deps.Notifier != nil {
		bundle.Notifications = service.NewNotificationService(deps.Notifier, log)
		bundle.Notifications.Register(deps.Dispatcher)
	}
	return bundle
}

// ProvideSessions creates the session manager.
func ProvideSessions(ids *IdentityBundle, store port.DocumentStore, ranker port.ExpenseRanker, logger *zap.Logger) *session.Manager {
	log := newLogAdapter(logger)
	gateway := prioritization.NewGateway(ranker, log)
	return session.NewManager(ids.Verifier, ids.Tokens, store, gateway, log)
}

// ProvideWorkers creates the worker manager with every background worker registered.
func ProvideWorkers(sessions *session.Manager, cfg *SessionConfig, logger *zap.Logger) *worker.Manager {
	workers := worker.NewManager(logger)
	workers.Register(worker.NewSessionSweeper(sessions, cfg.SweepInterval, logger))
	return workers
}

// zapLoggerAdapter adapts zap.Logger to the Info/Error key-value Logger
// interfaces of the application and interface packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func newLogAdapter(logger *zap.Logger) *zapLoggerAdapter {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
// Pairs with a non-string key are skipped.
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
