package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"chat-backend/internal/config"
	"chat-backend/internal/domain/chat"
	"chat-backend/internal/domain/llm"
	"chat-backend/internal/domain/resume"
	"chat-backend/internal/domain/retry"
	"chat-backend/internal/domain/stream"
	"chat-backend/internal/infrastructure/auth"
	"chat-backend/internal/infrastructure/database"
	"chat-backend/internal/infrastructure/llmprovider"
	"chat-backend/internal/infrastructure/logger"
	"chat-backend/internal/infrastructure/observability"
	conversationrepo "chat-backend/internal/infrastructure/repository/conversation"
	messagerepo "chat-backend/internal/infrastructure/repository/message"
	"chat-backend/internal/interfaces/httpserver"
	"chat-backend/internal/webhook"
)

// @title Chat Backend API
// @version 1.0
// @description Streams chat completions over SSE with idempotent conversation persistence and auto-resume support.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := conversationrepo.NewRepository(db)
	messageRepository := messagerepo.NewRepository(db)

	registry := newProviderRegistry(cfg, log)
	catalog := llm.NewCatalog(cfg.AvailableProviders())
	orchestrator := stream.NewOrchestrator(registry, log)
	sessions := stream.NewManager(log)
	tracker := resume.NewTracker(cfg.ResumeTTL)
	reconciler := chat.NewReconciler(messageRepository, log)

	var notifier chat.Notifier = webhook.NopService{}
	if cfg.WebhookURL != "" {
		notifier = webhook.NewHTTPService(cfg.WebhookURL, log)
	}

	chatService := chat.NewService(
		conversationRepository,
		messageRepository,
		reconciler,
		orchestrator,
		sessions,
		tracker,
		catalog,
		notifier,
		cfg.SystemPrompt,
		log,
	)

	httpServer := httpserver.New(cfg, log, chatService, catalog, sessions, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// newProviderRegistry routes model prefixes to the configured upstream
// clients. Both upstreams speak the OpenAI chat completions dialect.
func newProviderRegistry(cfg *config.Config, log zerolog.Logger) *llm.Registry {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.ProviderMaxRetries

	registry := llm.NewRegistry()
	if cfg.HasOpenAI() {
		registry.Register("gpt-", llmprovider.NewClient("openai", cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ProviderTimeout, policy, log))
	}
	if cfg.HasGoogle() {
		registry.Register("gemini-", llmprovider.NewClient("google", cfg.GoogleBaseURL, cfg.GoogleAPIKey, cfg.ProviderTimeout, policy, log))
	}
	return registry
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
