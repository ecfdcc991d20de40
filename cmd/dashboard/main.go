package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"CoinDash/internal/aggregator"
	"CoinDash/internal/catalog"
	"CoinDash/internal/collector"
	"CoinDash/internal/config"
	"CoinDash/internal/logger"
	"CoinDash/internal/recorder"
	"CoinDash/internal/scheduler"
	"CoinDash/internal/server"
)

func main() {
	envErr := godotenv.Load()

	// Load config
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("load config")
	}
	logger.Init(cfg.LogLevel)
	log := logger.With("main")
	if envErr != nil && !os.IsNotExist(envErr) {
		log.WithError(envErr).Warn("read .env")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}
	log.Info("CoinDash starting...")

	// Init providers
	var (
		index    collector.IndexProvider
		exchange collector.ExchangeProvider
	)
	if cfg.MockProviders {
		now := time.Now()
		index = collector.NewMockIndexProvider(60, now)
		exchange = collector.NewMockExchangeProvider(now, "XXBT", "XETH", "SOL", "ADA", "XXRP")
	} else {
		index = collector.NewCoinCapProvider(cfg.Index.BaseURL, cfg.Index.APIKey,
			collector.NewHTTPClient(cfg.IndexTimeout(), cfg.Proxy), cfg.IndexTimeout())
		exchange = collector.NewKrakenProvider(cfg.Exchange.BaseURL,
			collector.NewHTTPClient(cfg.ExchangeTimeout(), cfg.Proxy), cfg.ExchangeTimeout())
	}
	log.Infof("data sources: %s, %s", index.Name(), exchange.Name())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init catalog, mirrored to redis when configured
	rdb := newRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	cat := catalog.New(exchange, cfg.Exchange.QuoteCurrency, rdb, cfg.CatalogTTL())
	if err := cat.Load(ctx); err != nil {
		log.WithError(err).Warn("initial catalog load failed, charts unavailable until the next refresh")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	engine := aggregator.NewEngine(index, aggregator.Settings{
		ChangeLimit:   cfg.Dashboard.ChangeLimit,
		TopN:          cfg.Dashboard.TopN,
		SnapshotLimit: cfg.Dashboard.SnapshotLimit,
		HistoryDays:   cfg.Index.HistoryDays,
		Workers:       cfg.Dashboard.Workers,
	})
	charts := aggregator.NewChartService(exchange, cat)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, engine, cat, rec, cfg.PassTimeout())
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.CatalogCron); err != nil {
		log.WithError(err).Fatal("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if _, err := sched.RefreshNow(ctx); err != nil {
			log.WithError(err).Warn("initial dashboard pass")
		}
	}()

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	h := server.NewHandler(sched, engine, charts, cat, server.Defaults{
		Symbol: cfg.Dashboard.DefaultSymbol,
		Period: cfg.Dashboard.DefaultPeriod,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	log.Info("CoinDash is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	cancel()
	log.Info("CoinDash stopped")
}

// newRedis connects to redis when an address is configured. A failed ping disables the mirror.
func newRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.With("main").WithError(err).WithField("addr", cfg.Redis.Addr).Warn("redis unavailable, catalog mirror disabled")
		_ = rdb.Close()
		return nil
	}
	logger.With("main").WithField("addr", cfg.Redis.Addr).Info("redis connected")
	return rdb
}
