package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/config"
	"github.com/temcen/copyink/internal/database"
	"github.com/temcen/copyink/internal/fallback"
	"github.com/temcen/copyink/internal/generator"
	"github.com/temcen/copyink/internal/messaging"
	"github.com/temcen/copyink/internal/policy"
	"github.com/temcen/copyink/internal/validation"
)

type Services struct {
	Auth       TokenVerifier
	Health     *HealthService
	Generation *GenerationOrchestrator
	MessageBus *messaging.UsagePublisher
}

func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	authService, err := NewAuthService(ctx, cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Quota.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid quota.time_zone %q: %w", cfg.Quota.TimeZone, err)
	}

	quotaStore, err := newQuotaStore(ctx, cfg.Quota, db, logger, loc)
	if err != nil {
		return nil, err
	}

	rateLimiter, err := newRateLimiter(cfg.RateLimit, db, logger)
	if err != nil {
		return nil, err
	}

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load output schemas: %w", err)
	}

	var contentGenerator ContentGenerator
	gen, err := generator.New(generator.Config{
		APIKey:      cfg.Generator.APIKey,
		BaseURL:     cfg.Generator.BaseURL,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
		Timeout:     cfg.Generator.Timeout,
		Retry: generator.RetryPolicy{
			MaxAttempts: cfg.Generator.MaxAttempts,
			BaseDelay:   cfg.Generator.BaseDelay,
			RetryDelay:  cfg.Generator.RetryDelay,
		},
	}, logger)
	switch {
	case errors.Is(err, generator.ErrNotConfigured):
		logger.Warn("Generator API key not set, all requests will be served from fallback copy")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	default:
		contentGenerator = gen
	}

	var publisher UsagePublisher
	messageBus := messaging.NewUsagePublisher(cfg.Kafka, logger)
	if messageBus != nil {
		publisher = messageBus
	}

	metrics := NewMetricsCollector(reg)

	generation := NewGenerationOrchestrator(GenerationDeps{
		Validator: validation.NewRequestValidator(),
		Schemas:   schemas,
		Generator: contentGenerator,
		Policy:    policy.NewDefault(),
		Catalog:   fallback.New(),
		Quota:     quotaStore,
		Limiter:   rateLimiter,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	})

	return &Services{
		Auth:       authService,
		Health:     NewHealthService(logger, db, contentGenerator != nil, reg),
		Generation: generation,
		MessageBus: messageBus,
	}, nil
}

func newQuotaStore(ctx context.Context, cfg config.QuotaConfig, db *database.Database, logger *logrus.Logger, loc *time.Location) (QuotaStore, error) {
	switch cfg.Backend {
	case "", "redis":
		if db.Redis == nil {
			logger.Warn("No quota store bound (redis.url empty), quota enforcement is disabled")
			return NewDisabledQuotaStore(nil, loc), nil
		}
		return NewRedisQuotaStore(db.Redis, logger, nil, loc), nil
	case "postgres":
		if db.PG == nil {
			return nil, errors.New("quota.backend=postgres requires database.url")
		}
		store := NewPostgresQuotaStore(db.PG, logger, nil, loc)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		logger.Warn("Using in-memory quota store, usage is lost on restart")
		return NewMemoryQuotaStore(nil, loc), nil
	default:
		return nil, fmt.Errorf("unknown quota.backend %q", cfg.Backend)
	}
}

func newRateLimiter(cfg config.RateLimitConfig, db *database.Database, logger *logrus.Logger) (RateLimiter, error) {
	switch cfg.Backend {
	case "", "redis":
		if db.Redis == nil {
			logger.Warn("No rate limit store bound (redis.url empty), cooldowns are disabled")
			return DisabledRateLimiter{}, nil
		}
		return NewRedisRateLimiter(db.Redis, cfg.Cooldown, cfg.TTL, nil, logger), nil
	case "memory":
		return NewMemoryRateLimiter(cfg.Cooldown, cfg.TTL, nil), nil
	default:
		return nil, fmt.Errorf("unknown rate_limit.backend %q", cfg.Backend)
	}
}
