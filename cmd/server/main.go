package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/bot"
	"github.com/suda/punchcard/internal/config"
	"github.com/suda/punchcard/internal/db"
	"github.com/suda/punchcard/internal/jobs"
	"github.com/suda/punchcard/internal/logger"
	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
	"github.com/suda/punchcard/internal/web"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("punchcard stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if n, err := db.SeedAdmins(conn, cfg.AdminIDs); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	} else if n > 0 {
		log.Info("admins seeded", zap.Int("count", n))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := services.New(conn, services.Options{Threshold: cfg.PointsThreshold, Location: loc}, log)

	var (
		sessions session.Store
		purger   jobs.SessionPurger
	)
	switch cfg.SessionBackend {
	case config.SessionRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	default:
		st := session.NewDBStore(conn, cfg.SessionTTL, nil)
		sessions, purger = st, st
	}

	client, err := bot.NewClient(cfg.BotToken, log)
	if err != nil {
		return err
	}
	if err := client.RegisterCommands(); err != nil {
		log.Warn("register bot commands", zap.Error(err))
	}

	events := make(chan bot.Event, 64)
	dispatcher := bot.NewDispatcher(svc, sessions, client, bot.Options{
		ShopName: cfg.ShopName,
		Metrics:  bot.NewMetrics(reg),
	}, log)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx, events)
	}()
	// stop the loop and let the current event finish before the deferred closes run
	defer func() {
		stop()
		<-dispatcherDone
	}()

	if cfg.WebhookURL != "" {
		hook := strings.TrimRight(cfg.WebhookURL, "/") + "/tg/webhook?secret=" + cfg.WebhookSecret
		if err := client.SetWebhook(hook); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Info("receiving updates via webhook")
	} else {
		if err := client.SetWebhook(""); err != nil {
			log.Warn("delete webhook", zap.Error(err))
		}
		go client.Poll(ctx, events)
		log.Info("receiving updates via long polling")
	}

	reaper := jobs.NewReaper(svc, purger, reg, log)
	reaperJob, err := reaper.Schedule(cfg.ReaperSchedule, loc)
	if err != nil {
		return err
	}
	defer reaperJob.Stop()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.Router(web.Deps{
			DB:            sqlDB,
			Codes:         svc,
			Events:        events,
			WebhookSecret: cfg.WebhookSecret,
			Gatherer:      reg,
			Log:           log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("punchcard listening", zap.String("addr", cfg.Addr), zap.String("shop", cfg.ShopName))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
