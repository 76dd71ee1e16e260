package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/okhv/sms-relay/internal/api"
	"github.com/okhv/sms-relay/internal/cache"
	"github.com/okhv/sms-relay/internal/config"
	"github.com/okhv/sms-relay/internal/gateway"
	"github.com/okhv/sms-relay/internal/logger"
	"github.com/okhv/sms-relay/internal/repo"
	"github.com/okhv/sms-relay/internal/scheduler"
	"github.com/okhv/sms-relay/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	lg := logger.New(cfg.LogLevel)
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var msgRepo repo.MessageRepository
	if cfg.Dispatch.UseDB {
		db, err := sql.Open("pgx", cfg.Database.PostgresURL)
		if err != nil {
			lg.Error("failed to open postgres", "error", err)
			return
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			lg.Error("failed to ping postgres", "error", err)
			return
		}

		msgRepo = repo.NewPostgresMessageRepo(db)
	}

	var statusCache cache.StatusCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		statusCache = cache.NewRedisStatusCache(rdb, cfg.Redis.TTL)
	}

	gw := gateway.NewHTTPClient(cfg.Gateway.URL, cfg.Gateway.APIKey)
	presenter := service.NewStatusPresenter(cfg.Statuses.Labels, cfg.Statuses.ErrorLabel)

	dispatcher := service.NewDispatcher(gw, msgRepo, service.DispatchConfig{
		Persist:         cfg.Dispatch.UseDB,
		DefaultSender:   cfg.Dispatch.DefaultSender,
		DefaultLifetime: cfg.Dispatch.DefaultLifetime,
	}, lg)

	reconciler := service.NewReconciler(gw, msgRepo, statusCache, presenter, service.ReconcileConfig{
		Persist:         cfg.Dispatch.UseDB,
		StaleAfterHours: cfg.Reconcile.StaleAfterHours,
		BatchSize:       cfg.Reconcile.BatchSize,
	}, lg)

	resender := service.NewResender(dispatcher, msgRepo, service.ResendConfig{
		MinMinutes: cfg.Resend.MinMinutes,
		MaxMinutes: cfg.Resend.MaxMinutes,
		MaxAttempt: cfg.Resend.MaxAttempt,
		BatchSize:  cfg.Resend.BatchSize,
	}, lg)

	statusSweep, err := scheduler.New("status", cfg.Reconcile.Interval, func(ctx context.Context) {
		if err := reconciler.SweepPending(ctx, 0); err != nil {
			lg.ErrorContext(ctx, "status sweep failed", "error", err)
		}
	}, lg)
	if err != nil {
		lg.Error("failed to create status sweep", "error", err)
		return
	}

	resendSweep, err := scheduler.New("resend", cfg.Resend.Interval, func(ctx context.Context) {
		if err := resender.SweepUndelivered(ctx, 0, 0, 0); err != nil {
			lg.ErrorContext(ctx, "resend sweep failed", "error", err)
		}
	}, lg)
	if err != nil {
		lg.Error("failed to create resend sweep", "error", err)
		return
	}

	if cfg.Dispatch.UseDB {
		statusSweep.Start()
		resendSweep.Start()
		defer func() {
			resendSweep.Stop()
			statusSweep.Stop()
		}()
	}

	h := api.NewHandler(dispatcher, reconciler, presenter, msgRepo, statusCache, map[string]api.Sweep{
		statusSweep.Name(): statusSweep,
		resendSweep.Name(): resendSweep,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Router(h),
	}

	lg.Info("sms-relay starting",
		"addr", cfg.Server.Address,
		"use_db", cfg.Dispatch.UseDB,
		"redis", cfg.Redis.Enabled,
		"status_interval", cfg.Reconcile.Interval.String(),
		"resend_interval", cfg.Resend.Interval.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("sms-relay exited with error", "error", err)
		return
	}
	lg.Info("sms-relay stopped")
}
