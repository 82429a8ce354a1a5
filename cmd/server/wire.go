//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chat-backend/internal/config"
	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/resume"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/infrastructure/auth"
	"chat-backend/internal/infrastructure/database"
	"chat-backend/internal/infrastructure/logger"
	conversationrepo "chat-backend/internal/infrastructure/repository/conversation"
	messagerepo "chat-backend/internal/infrastructure/repository/message"
	"chat-backend/internal/interfaces/httpserver"
	"chat-backend/internal/webhook"
)

var chatSet = wire.NewSet(
	conversationrepo.NewRepository,
	wire.Bind(new(chat.ConversationRepository), new(*conversationrepo.Repository)),
	messagerepo.NewRepository,
	wire.Bind(new(chat.MessageRepository), new(*messagerepo.Repository)),
	newProviderRegistry,
	newCatalog,
	stream.NewOrchestrator,
	stream.NewManager,
	newResumeTracker,
	chat.NewReconciler,
	newNotifier,
	newChatService,
)

// BuildApplication assembles the chat service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newAuthValidator,
		chatSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newCatalog(cfg *config.Config) *llm.Catalog {
	return llm.NewCatalog(cfg.AvailableProviders())
}

func newResumeTracker(cfg *config.Config) resume.Tracker {
	return resume.NewTracker(cfg.ResumeTTL)
}

func newNotifier(cfg *config.Config, log zerolog.Logger) chat.Notifier {
	if cfg.WebhookURL == "" {
		return webhook.NopService{}
	}
	return webhook.NewHTTPService(cfg.WebhookURL, log)
}

func newChatService(
	cfg *config.Config,
	conversations chat.ConversationRepository,
	messages chat.MessageRepository,
	reconciler *chat.Reconciler,
	orchestrator *stream.Orchestrator,
	sessions *stream.Manager,
	tracker resume.Tracker,
	catalog *llm.Catalog,
	notifier chat.Notifier,
	log zerolog.Logger,
) chat.Service {
	return chat.NewService(conversations, messages, reconciler, orchestrator, sessions, tracker, catalog, notifier, cfg.SystemPrompt, log)
}
