package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"stockprices-service/internal/application"
	"stockprices-service/internal/config"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/httpx"
	"stockprices-service/internal/infrastructure/logx"
	"stockprices-service/internal/infrastructure/pg"
	"stockprices-service/internal/infrastructure/provider"
	"stockprices-service/internal/infrastructure/ratelimit"
	redisstore "stockprices-service/internal/infrastructure/redis"
)

type Repos struct {
	DB     *pg.DB
	Prices application.PriceRepo
	Runs   application.RunRepo
	UoW    application.UnitOfWork
}

type Services struct {
	Idem application.IdempotencyStore
}

// BuildRepos builds repositories based on STORAGE config ("pg" expected).
func BuildRepos(ctx context.Context, cfg config.Config) (Repos, func(), error) {
	log := logx.L()
	switch cfg.Storage {
	case "pg":
		if cfg.DatabaseURL == "" {
			return Repos{}, func() {}, fmt.Errorf("DATABASE_URL is required for STORAGE=pg")
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Repos{}, func() {}, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Repos{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Repos{
			DB:     db,
			Prices: pg.NewPriceRepo(db),
			Runs:   pg.NewRunRepo(db),
			UoW:    &pg.UnitOfWork{Pool: db.Pool},
		}, cleanup, nil
	default:
		return Repos{}, func() {}, fmt.Errorf("unsupported STORAGE=%q; set STORAGE=pg", cfg.Storage)
	}
}

// BuildProvider returns the market-data provider, rate-limited to the
// configured call budget.
func BuildProvider(cfg config.Config) (application.MarketDataProvider, error) {
	var p application.MarketDataProvider
	switch cfg.Provider {
	case "alphavantage":
		if cfg.AlphaAPIKey == "" {
			return nil, fmt.Errorf("ALPHA_VANTAGE_API_KEY is required for PROVIDER=alphavantage")
		}
		p = &provider.AlphaVantage{
			BaseURL:    cfg.AlphaBaseURL,
			APIKey:     cfg.AlphaAPIKey,
			OutputSize: cfg.AlphaOutputSize,
			Client:     &httpx.Client{HTTP: &http.Client{Timeout: 30 * time.Second}},
			Policy: httpx.Policy{
				MaxAttempts:    cfg.RetryMaxAttempts,
				BaseDelay:      cfg.RetryBaseDelay,
				MaxDelay:       cfg.RetryMaxDelay,
				Multiplier:     cfg.RetryMultiplier,
				JitterFraction: cfg.RetryJitter,
			},
		}
	default:
		p = provider.NewFake(123.45)
	}
	return &ratelimit.Limited{
		Next: p,
		TB:   ratelimit.NewTokenBucket(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
	}, nil
}

// BuildRedis builds the idempotency store if enabled (falls back to Noop).
func BuildRedis(cfg config.Config) (Services, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return Services{Idem: application.NoopIdempotency{}}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := redisstore.New(rdb, cfg.RedisTTL)
	cleanup := func() { _ = rdb.Close() }
	return Services{Idem: store}, cleanup, nil
}

// BuildService assembles the ingestion service from its parts.
func BuildService(repos Repos, p application.MarketDataProvider, services Services, cfg config.Config) *application.IngestionService {
	return application.NewIngestionService(
		repos.Prices, repos.Runs, p, repos.UoW, services.Idem,
		application.WithQualityPolicy(cfg.QualityMaxReject, cfg.QualityAbort),
		application.WithMaxParallel(cfg.MaxParallel),
	)
}

// Symbols converts the configured ticker list to domain symbols.
func Symbols(cfg config.Config) []domain.Symbol {
	out := make([]domain.Symbol, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		out = append(out, domain.Symbol(s))
	}
	return out
}
