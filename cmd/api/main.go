package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bookbotclinic/bookbot/cmd/mainconfig"
	"github.com/bookbotclinic/bookbot/internal/api/router"
	"github.com/bookbotclinic/bookbot/internal/bookings"
	"github.com/bookbotclinic/bookbot/internal/catalog"
	appconfig "github.com/bookbotclinic/bookbot/internal/config"
	"github.com/bookbotclinic/bookbot/internal/dialogue"
	"github.com/bookbotclinic/bookbot/internal/observability/metrics"
	"github.com/bookbotclinic/bookbot/internal/webchat"
	"github.com/bookbotclinic/bookbot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
	)

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.SessionBackend == "redis" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
	}

	store, err := buildSessionStore(ctx, cfg, redisClient)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}

	// The catalog override store shares the Redis connection; without Redis
	// the resolver serves the built-in catalog.
	var catalogs *catalog.Resolver
	if redisClient != nil {
		catalogs = catalog.NewResolver(catalog.NewStore(redisClient))
	}

	generator, extractor := buildLLM(ctx, cfg, logger)

	dialogueMetrics := metrics.NewDialogueMetrics(nil)

	var (
		archiver       dialogue.BookingArchiver
		archiveHandler *bookings.Handler
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open archive database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to reach archive database", "error", err)
			os.Exit(1)
		}
		archive := bookings.NewStore(db)
		archiver = archive
		archiveHandler = bookings.NewHandler(archive, logger)
		logger.Info("booking archive enabled")
	}

	engine := dialogue.NewEngine(store, catalogs, generator, extractor,
		&meteredArchiver{next: archiver, metrics: dialogueMetrics}, logger)
	handler := dialogue.NewHandler(engine, catalogs, dialogueMetrics, logger)
	chat := webchat.NewHandler(engine, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		DialogueHandler:    handler,
		MetricsHandler:     promhttp.Handler(),
		WebChatHandler:     chat,
		ArchiveHandler:     archiveHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatBurst:          cfg.ChatBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// meteredArchiver counts finalized bookings before handing them to the real
// archive, if one is configured.
type meteredArchiver struct {
	next    dialogue.BookingArchiver
	metrics *metrics.DialogueMetrics
}

func (a *meteredArchiver) Archive(ctx context.Context, sessionID string, b dialogue.Booking) error {
	a.metrics.ObserveBooking()
	if a.next == nil {
		return nil
	}
	return a.next.Archive(ctx, sessionID, b)
}

// buildSessionStore selects the session backend from configuration.
func buildSessionStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client) (dialogue.SessionStore, error) {
	switch cfg.SessionBackend {
	case "redis":
		return dialogue.NewRedisSessionStore(redisClient, cfg.SessionTTL, nil), nil
	case "dynamodb":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return dialogue.NewDynamoSessionStore(client, cfg.SessionTable, cfg.SessionTTL), nil
	default:
		return dialogue.NewMemorySessionStore(), nil
	}
}

// buildLLM wires the reply generator and the advisory field extractor.
// With no model configured both stay nil and the engine answers free chat
// with its static fallback.
func buildLLM(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (dialogue.TextGenerator, *dialogue.FieldExtractor) {
	var primary dialogue.LLMClient
	model := cfg.BedrockModelID

	if cfg.BedrockModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for Bedrock", "error", err)
		} else {
			primary = dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		}
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := dialogue.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to initialize Gemini client", "error", err)
		} else if primary == nil {
			primary = gemini
			model = cfg.GeminiModelID
		} else {
			primary = dialogue.NewFallbackLLMClient(primary, gemini, logger)
		}
	}

	if primary == nil {
		logger.Warn("no LLM configured; free chat uses the static fallback reply")
		return nil, nil
	}

	generator := dialogue.NewLLMTextGenerator(primary, model, cfg.GeneratorTimeout)
	extractor := dialogue.NewFieldExtractor(primary, model)
	return generator, extractor
}
