package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"

	"github.com/tbeaudouin05/subscription-reconciler/api/auth"
	"github.com/tbeaudouin05/subscription-reconciler/api/cache"
	"github.com/tbeaudouin05/subscription-reconciler/api/config"
	"github.com/tbeaudouin05/subscription-reconciler/api/database"
	"github.com/tbeaudouin05/subscription-reconciler/api/scheduler"
	billingapp "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/app"
	billingdb "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/db"
	"github.com/tbeaudouin05/subscription-reconciler/api/services/billing/dedup"
	stripegw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway/stripe"
)

var (
	billingService billingapp.Service
	tokens         auth.Tokens
	pruner         *cron.Cron
	usesRedis      bool

	initOnce sync.Once
	initErr  error
)

// Init loads config, opens the database and optional redis, and wires the billing service.
func Init() error {
	// If a service has already been injected (e.g., tests), do not override or init heavy deps.
	if billingService != nil {
		return nil
	}
	var err error
	if config.AppConfig == nil {
		config.AppConfig, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := config.AppConfig

	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	if err := database.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	store := billingdb.NewPostgresStore(database.GetDB())

	var seen dedup.Set = dedup.NewMemorySet(cfg.EventRetention)
	if cfg.RedisURL != "" {
		if err := cache.Initialize(context.Background(), cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		seen = dedup.NewRedisSet(cache.GetClient(), cfg.EventRetention)
		usesRedis = true
	}

	gateway := stripegw.New(stripegw.Options{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
		MaxRetries:    cfg.GatewayMaxRetries,
	})

	billingService = billingapp.NewService(gateway, store, billingapp.Options{
		PriceID:          cfg.StripePriceID,
		PublishableKey:   cfg.StripePublishableKey,
		DefaultTrialDays: config.DefaultTrialDays,
		WebhookTimeout:   cfg.WebhookTimeout,
		Dedup:            seen,
		Logger:           slog.Default().With("component", "billing"),
	})
	tokens = auth.NewTokens(cfg.AuthTokenSecret)

	pruner, err = scheduler.Start(scheduler.DefaultPruneSchedule, scheduler.PruneJob{
		Store:     store,
		Retention: cfg.EventRetention,
		Timeout:   time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule event pruning: %w", err)
	}
	return nil
}

func GetBillingService() billingapp.Service { return billingService }

// SetBillingService allows tests to inject a stub implementation.
func SetBillingService(s billingapp.Service) { billingService = s }

func GetTokens() auth.Tokens {
	if config.AppConfig != nil && !tokens.Configured() {
		tokens = auth.NewTokens(config.AppConfig.AuthTokenSecret)
	}
	return tokens
}

// SetTokens allows tests to inject a signing key.
func SetTokens(t auth.Tokens) { tokens = t }

// Ensure runs Init() once per process and returns any initialization error.
func Ensure() error {
	initOnce.Do(func() {
		initErr = Init()
	})
	return initErr
}

// Close stops background jobs and releases the database and redis connections.
func Close() error {
	var result *multierror.Error
	if pruner != nil {
		<-pruner.Stop().Done()
	}
	if usesRedis {
		if err := cache.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}
	}
	if database.GetDB() != nil {
		if err := database.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close database: %w", err))
		}
	}
	return result.ErrorOrNil()
}
