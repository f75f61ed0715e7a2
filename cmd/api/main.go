package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockprices-service/internal/bootstrap"
	"stockprices-service/internal/config"
	infraconfig "stockprices-service/internal/infrastructure/config"
	httpserver "stockprices-service/internal/infrastructure/http"
	"stockprices-service/internal/infrastructure/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

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
	srv := httpserver.NewServer(svc,
		httpserver.WithPing(repos.DB.Ping),
		httpserver.WithDefaultSymbols(bootstrap.Symbols(cfg)),
		httpserver.WithRunTimeout(cfg.RunTimeout),
	)
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
