package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/api"
	"github.com/venibank/ledgerd/internal/cache"
	"github.com/venibank/ledgerd/internal/config"
	"github.com/venibank/ledgerd/internal/ledger"
	"github.com/venibank/ledgerd/internal/store"
)

func main() {
	devMode := flag.Bool("dev", false, "serve from an in-process store, without Postgres or Redis")
	flag.Parse()

	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *devMode {
		cfg = config.FromEnv()
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	var processor *ledger.Processor
	if *devMode {
		mem := store.NewMemoryStore()
		processor = ledger.New(mem, mem, mem, nil, logger)
		logger.Warn("running on the in-process store, nothing will be durable")
	} else {
		st, err := store.New(context.Background(), cfg.DBSource, logger)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}

		var replay ledger.ReplayCache
		if cfg.RedisAddr != "" {
			c, err := cache.New(context.Background(), cfg.RedisAddr, logger)
			if err != nil {
				logger.Fatal("connect to redis", zap.Error(err))
			}
			defer c.Close()
			replay = c
			logger.Info("replay cache enabled", zap.String("addr", cfg.RedisAddr))
		}

		processor = ledger.New(st, st, st, replay, logger)
	}

	handler := api.NewHandler(processor, logger)
	router := api.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
