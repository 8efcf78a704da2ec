package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tawqeea/marketplace-backend/internal/adapters/cache"
	"github.com/tawqeea/marketplace-backend/internal/adapters/database"
	"github.com/tawqeea/marketplace-backend/internal/adapters/documents"
	"github.com/tawqeea/marketplace-backend/internal/adapters/providers/esign"
	"github.com/tawqeea/marketplace-backend/internal/api/handlers"
	"github.com/tawqeea/marketplace-backend/internal/api/routes"
	"github.com/tawqeea/marketplace-backend/internal/application/services"
	"github.com/tawqeea/marketplace-backend/internal/domain/providers"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/clients/postgres"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/clients/redis"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/notifications"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/observability"
	"github.com/tawqeea/marketplace-backend/pkg/config"
	"github.com/tawqeea/marketplace-backend/pkg/utils"
)

func main() {

	// Load configuration

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	observability.InitLogger(cfg.OTEL.ServiceName, env)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized successfully")

	// The webhook dedup store and the notification audit log share the pool
	sqlxDB := sqlx.NewDb(pgClient.DB(), "postgres")

	// Initialize Redis client
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Redis client, continuing without caching")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		logger.Info().Msg("Redis client initialized successfully")
	}

	// Initialize adapters

	ndaAdapter := database.NewNdaAdapter(pgClient)
	projectAdapter := database.NewProjectAdapter(pgClient)

	// Initialize e-signature provider
	signatureProvider, err := esign.NewProvider(&cfg.Esign, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize e-signature provider")
	}
	logger.Info().Str("provider", cfg.Esign.Provider).Msg("E-signature provider initialized")

	if cfg.Esign.WebhookSecret == "" {
		logger.Warn().Msg("ESIGN_WEBHOOK_SECRET is not set; all webhook deliveries will be rejected")
	}

	// Initialize the email sender for the fallback path and notifications
	smtpSender, err := notifications.NewSMTPSender(&cfg.SMTP)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize SMTP sender")
	}

	// Initialize services

	notificationService := services.NewNotificationService(sqlxDB, smtpSender, metrics)

	ndaService := services.NewNdaService(
		ndaAdapter,
		projectAdapter,
		signatureProvider,
		documents.NewPdfComposer(),
		notificationService,
		cacheProvider,
		utils.NewPhoneNormalizer(cfg.Phone.DefaultCountryCode),
		metrics,
	)

	// Initialize handlers

	ndaHandler := handlers.NewNdaHandler(ndaService)
	webhookHandler := handlers.NewEsignWebhookHandler(sqlxDB, ndaService, cfg.Esign.WebhookSecret, metrics)

	// Set up router

	router := routes.NewRouter(ndaHandler, webhookHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	logger.Info().Msg("Server stopped")
}
