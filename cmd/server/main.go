// Package main is the entry point for the mental health companion service.
// @title Mental Health Companion Service API
// @version 1.0
// @description Routes user messages through an intent classifier and a text generator with short-lived conversation sessions

// @contact.name API Support
// @contact.url https://github.com/unifiedui/mentalbot-service

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/unifiedui/mentalbot-service/docs"
	"github.com/unifiedui/mentalbot-service/internal/api/handlers"
	"github.com/unifiedui/mentalbot-service/internal/api/middleware"
	"github.com/unifiedui/mentalbot-service/internal/api/routes"
	"github.com/unifiedui/mentalbot-service/internal/config"
	"github.com/unifiedui/mentalbot-service/internal/core/vault"
	rediscache "github.com/unifiedui/mentalbot-service/internal/infrastructure/cache/redis"
	dotenvvault "github.com/unifiedui/mentalbot-service/internal/infrastructure/vault/dotenv"
	"github.com/unifiedui/mentalbot-service/internal/logging"
	"github.com/unifiedui/mentalbot-service/internal/pkg/encryption"
	"github.com/unifiedui/mentalbot-service/internal/services/assistant"
	"github.com/unifiedui/mentalbot-service/internal/services/auth"
	"github.com/unifiedui/mentalbot-service/internal/services/generation"
	"github.com/unifiedui/mentalbot-service/internal/services/orchestrator"
	"github.com/unifiedui/mentalbot-service/internal/services/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.Setup(cfg.Log)
	ctx := context.Background()

	// Initialize vault client using factory pattern
	vaultClient, err := createVault(cfg.Vault)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault")
	}
	defer vaultClient.Close()

	keys, err := vault.ResolveSecrets(ctx, vaultClient, cfg.Assistant.APIKeyRef, cfg.Generation.APIKeyRef)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve API keys")
	}
	assistantKey, generationKey := keys[0], keys[1]

	// The generation token is exchanged once at startup; failure is fatal.
	tokens, err := auth.NewTokenManager(ctx, &auth.TokenManagerConfig{
		URL:        cfg.IAM.URL,
		GrantType:  cfg.IAM.GrantType,
		APIKey:     generationKey,
		HTTPClient: &http.Client{Timeout: cfg.IAM.Timeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to acquire IAM token")
	}

	store, cleanup, err := createSessionStore(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize session store")
	}
	defer cleanup()

	classifier, err := assistant.NewClient(&assistant.ClientConfig{
		URL:          cfg.Assistant.URL,
		AssistantID:  cfg.Assistant.AssistantID,
		Version:      cfg.Assistant.Version,
		APIKey:       assistantKey,
		MarkerIntent: cfg.Assistant.MarkerIntent,
		HTTPClient:   &http.Client{Timeout: cfg.Assistant.Timeout},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize assistant client")
	}

	generator, err := generation.NewClient(&generation.ClientConfig{
		URL:                 cfg.Generation.URL,
		ModelID:             cfg.Generation.ModelID,
		ProjectID:           cfg.Generation.ProjectID,
		MaxNewTokens:        cfg.Generation.MaxNewTokens,
		RepetitionPenalty:   cfg.Generation.RepetitionPenalty,
		ModerationThreshold: cfg.Generation.ModerationThreshold,
		Tokens:              tokens,
		HTTPClient:          &http.Client{Timeout: cfg.Generation.Timeout},
		Logger:              &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize generation client")
	}

	orch, err := orchestrator.New(&orchestrator.Config{
		Store:      store,
		Classifier: classifier,
		Generator:  generator,
		Locker:     session.NewLocker(),
		Timeout:    cfg.Server.RequestTimeout,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	router := setupRouter(cfg, logger, orch, store)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Str("session_store", cfg.Session.Type).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

// createVault creates a vault based on the configuration.
func createVault(cfg config.VaultConfig) (vault.Vault, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewVault(), nil
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createSessionStore creates the session store selected by the configuration.
// The returned cleanup releases the store and its backing connection.
func createSessionStore(cfg *config.Config, logger *zerolog.Logger) (session.Store, func(), error) {
	switch cfg.Session.Type {
	case config.SessionStoreMemory:
		store, err := session.NewMemoryStore(&session.MemoryStoreConfig{
			Timeout:       cfg.Session.Timeout,
			Capacity:      cfg.Session.Capacity,
			SweepInterval: cfg.Session.SweepInterval,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.SessionStoreRedis:
		cacheClient, err := rediscache.NewCache(rediscache.Config{
			Host:       cfg.Cache.Host,
			Port:       cfg.Cache.Port,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			DefaultTTL: cfg.Session.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}

		encryptor, err := createEncryptor(cfg.Vault, logger)
		if err != nil {
			cacheClient.Close()
			return nil, nil, err
		}

		store, err := session.NewRedisStore(&session.RedisStoreConfig{
			Cache:     cacheClient,
			Encryptor: encryptor,
			Timeout:   cfg.Session.Timeout,
			Logger:    logger,
		})
		if err != nil {
			cacheClient.Close()
			return nil, nil, err
		}
		return store, func() {
			store.Close()
			cacheClient.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported session store type: %s", cfg.Session.Type)
	}
}

// createEncryptor creates the encryptor for session documents at rest.
func createEncryptor(cfg config.VaultConfig, logger *zerolog.Logger) (encryption.Encryptor, error) {
	if cfg.EncryptionKey == "" {
		logger.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, session documents are stored unencrypted")
		return encryption.NewNoOpEncryptor(), nil
	}
	return encryption.NewAESEncryptor(cfg.EncryptionKey)
}

// setupRouter creates and configures the Gin router.
func setupRouter(cfg *config.Config, logger zerolog.Logger, orch *orchestrator.Orchestrator, store session.Store) *gin.Engine {
	router := gin.New()

	loggingMw := middleware.NewLoggingMiddlewareWithLogger(logger)
	errorMw := middleware.NewErrorMiddleware()

	routesCfg := &routes.Config{
		HealthHandler:   handlers.NewHealthHandler(store),
		MessagesHandler: handlers.NewMessagesHandler(orch),
	}

	routes.SetupWithMiddleware(router, routesCfg, loggingMw, errorMw, middleware.DefaultCORSConfig(cfg.CORS.AllowOrigins))

	return router
}
