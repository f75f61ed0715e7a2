package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockprices-service/internal/bootstrap"
	"stockprices-service/internal/config"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

// cmd/ingest runs one ingestion pass over the configured symbols and exits.
// An external scheduler (cron, Airflow, systemd timer) owns the recurrence.
func main() {
	logger := logx.L()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	repos, cleanupRepos, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap repos", zap.Error(err))
	}
	defer cleanupRepos()

	services, cleanupRedis, err := bootstrap.BuildRedis(cfg)
	if err != nil {
		logger.Fatal("bootstrap redis", zap.Error(err))
	}
	defer cleanupRedis()

	p, err := bootstrap.BuildProvider(cfg)
	if err != nil {
		logger.Fatal("bootstrap provider", zap.Error(err))
	}

	svc := bootstrap.BuildService(repos, p, services, cfg)

	symbols := bootstrap.Symbols(cfg)
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	logger.Info("run.start", zap.Int("symbols", len(symbols)), zap.Time("as_of", asOf))

	summary, err := svc.Run(ctx, symbols, asOf, nil)
	if err != nil {
		logger.Fatal("run failed to start", zap.Error(err))
	}

	for _, out := range summary.PerSymbol {
		switch out.Status {
		case domain.OutcomeOK:
			logger.Info("symbol.done",
				zap.String("symbol", string(out.Symbol)),
				zap.Int("fetched", out.Fetched),
				zap.Int("inserted", out.Inserted),
				zap.Int("updated", out.Updated),
				zap.Int("unchanged", out.Unchanged),
				zap.Int("warnings", len(out.Warnings)),
			)
		default:
			logger.Warn("symbol.failed",
				zap.String("symbol", string(out.Symbol)),
				zap.String("status", string(out.Status)),
				zap.String("reason", out.Error),
			)
		}
	}

	failed := summary.Failed()
	logger.Info("run.finished",
		zap.String("run_id", summary.RunID),
		zap.Int("symbols", len(symbols)),
		zap.Int("failed", failed),
		zap.Int("inserted", summary.Inserted()),
		zap.Int("updated", summary.Updated()),
	)

	// Partial failure is still a useful run; only a full wipeout is fatal.
	if failed == len(symbols) {
		os.Exit(1)
	}
}
