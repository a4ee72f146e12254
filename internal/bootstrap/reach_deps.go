package bootstrap

import (
	"context"
	"time"

	"reach_server/adapter/out/persistence"
	"reach_server/adapter/out/provider"
	"reach_server/adapter/out/push"
	"reach_server/config"
	"reach_server/core/port/in"
	"reach_server/core/service/notification"
	"reach_server/core/service/social"
	"reach_server/core/service/tier"
	"reach_server/infra/database"
	"reach_server/pkg/cache"
	"reach_server/pkg/logger"
	"reach_server/pkg/metrics"
	"reach_server/pkg/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds each startup connection attempt.
const connectTimeout = 10 * time.Second

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Repositories
	CreatorRepo      *persistence.CreatorAdapter
	NotificationRepo *persistence.NotificationAdapter
	PushTokenRepo    *persistence.PushTokenAdapter

	// Providers
	SocialProvider *provider.SocialAnalyticsAdapter

	// Services
	SocialService       in.SocialService
	TierService         *tier.Service
	Recomputer          *tier.Recomputer
	NotificationService *notification.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()

	// Database (pgxpool, health and pool stats)
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, db.Close)

	// Database (sqlx for adapters)
	sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseURL, pgCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })
	metrics.RegisterDBPool("postgres", sqlDB.DB)

	// Redis is optional; without it profile lookups are not cached.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL, database.DefaultRedisConfig())
		if err != nil {
			logger.Warn("Redis connection failed, profile cache disabled: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
		}
	}

	// Repositories
	deps.CreatorRepo = persistence.NewCreatorAdapter(sqlDB)
	deps.NotificationRepo = persistence.NewNotificationAdapter(sqlDB)
	deps.PushTokenRepo = persistence.NewPushTokenAdapter(sqlDB)

	// Social analytics
	zlog := logger.Default().Zerolog()
	deps.SocialProvider = provider.NewSocialAnalyticsAdapter(provider.SocialAPIConfig{
		BaseURL: cfg.SocialAPIBaseURL,
		APIKey:  cfg.SocialAPIKey,
		APIHost: cfg.SocialAPIHost,
		Timeout: cfg.SocialAPITimeout,
		RPS:     cfg.SocialAPIRPS,
		Burst:   cfg.SocialAPIBurst,
	}, zlog)
	if !deps.SocialProvider.Configured() {
		logger.Warn("SOCIAL_API_KEY not set, automatic profile lookups will fail")
	}

	normalizer := social.NewNormalizer(deps.SocialProvider, social.WithCandidateTimeout(cfg.SocialAPITimeout))
	deps.SocialService = normalizer
	if deps.Redis != nil {
		profileCache := persistence.NewProfileCacheAdapter(cache.NewRedisCache(deps.Redis, "reach:"), cfg.SocialCacheTTL)
		deps.SocialService = social.NewCachedNormalizer(normalizer, profileCache)
	}

	// Notifications; push is decided once here.
	pushSender := push.New(push.Config{URL: cfg.PushAPIURL, AccessToken: cfg.PushAccessToken})
	if !pushSender.Enabled() {
		logger.Info("PUSH_ACCESS_TOKEN not set, push delivery disabled")
	}
	deps.NotificationService = notification.NewService(deps.NotificationRepo, deps.PushTokenRepo, pushSender)

	// Tiers
	deps.TierService = tier.NewService(deps.CreatorRepo, deps.SocialService, deps.NotificationService).
		WithRetry(resilience.NewRetryExecutor(resilience.DefaultRetryConfig()))
	deps.Recomputer = tier.NewRecomputer(deps.TierService, cfg.TierRecomputeWorkers, zlog)

	logger.Info("Dependencies initialized (redis=%t, push=%t)", deps.Redis != nil, pushSender.Enabled())
	return deps, cleanup, nil
}
