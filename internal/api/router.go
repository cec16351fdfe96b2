package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/johncarlocos/topx-betting-mern/internal/api/handlers"
	"github.com/johncarlocos/topx-betting-mern/internal/api/middleware"
	"github.com/johncarlocos/topx-betting-mern/internal/config"
	"github.com/johncarlocos/topx-betting-mern/internal/repository"
	"github.com/johncarlocos/topx-betting-mern/internal/service"
	"github.com/johncarlocos/topx-betting-mern/pkg/cache"
	"github.com/johncarlocos/topx-betting-mern/pkg/database"
	"github.com/johncarlocos/topx-betting-mern/pkg/feed"
	"github.com/johncarlocos/topx-betting-mern/pkg/provider"
	"github.com/johncarlocos/topx-betting-mern/pkg/ratelimit"
)

// SetupRouter wires the service graph and the HTTP routes. The returned
// cleanup stops the background workers it started.
func SetupRouter(cfg *config.Config, db *database.DB, redisClient *redis.Client) (*gin.Engine, func()) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// durable cache tier (Postgres)
	cacheRepo := repository.NewCacheRepository(db)
	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cacheRepo.EnsureSchema(schemaCtx); err != nil {
		panic("Failed to prepare cache schema: " + err.Error())
	}
	stopReaper := cacheRepo.StartReaper(10 * time.Minute)

	// fast cache tier (Redis) layered on top
	tiered := cache.NewTieredCache(cache.NewRedisStore(redisClient), cacheRepo)

	// one shared window protecting the single upstream provider account
	limiter := ratelimit.NewFixedWindowLimiter(redisClient, ratelimit.FixedWindowConfig{
		FailOpen: cfg.RateLimitFailOpen,
	})
	gate := ratelimit.NewClientLimiter(limiter, cfg.RateLimitClientID, cfg.RateLimit, cfg.RateLimitWindow)

	// external collaborators
	feedClient := feed.NewClient(cfg.FeedURL, cfg.UpstreamTimeout)
	providerClient := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.UpstreamTimeout)

	// services
	calculator := service.NewOddsCalculator()
	resolver := service.NewResultResolver(feedClient, providerClient, calculator)
	matchService := service.NewMatchService(resolver, tiered, gate, service.MatchServiceConfig{
		FastTTL:    cfg.ResultFastTTL,
		DurableTTL: cfg.ResultDurableTTL,
	})
	listService := service.NewMatchListService(feedClient, matchService, cacheRepo, tiered, cfg.ListTTL)

	matchHandler := handlers.NewMatchHandler(listService, matchService)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.PublicAPIRateLimit())
	{
		matches := v1.Group("/matches")
		{
			matches.GET("", matchHandler.GetMatchData)
			matches.GET("/:id", matchHandler.GetMatchResult)
		}
	}

	return router, stopReaper
}
