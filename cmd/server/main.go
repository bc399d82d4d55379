package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restostock/backend/internal/config"
	"restostock/backend/internal/httpapi"
	"restostock/backend/internal/jobs"
	"restostock/backend/internal/mailer"
	"restostock/backend/internal/service"
	"restostock/backend/internal/store"
	"restostock/backend/internal/store/memory"
	pgstore "restostock/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	var locker jobs.Locker = jobs.NoopLocker{}
	if cfg.RedisAddr != "" {
		redisLocker := jobs.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisLocker.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, using noop job lock")
		} else {
			locker = redisLocker
			closers = append(closers, redisLocker.Close)
			logger.Info("job lock: redis")
		}
	} else {
		logger.Info("job lock: noop")
	}

	var mail mailer.Sender = mailer.Noop{}
	if cfg.MailConfigured() {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		logger.Info("mailer: smtp")
	} else {
		logger.Warn("mailer: noop, SMTP not configured")
	}

	svc := service.New(repo, mail, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	jobCtx, stopJobs := context.WithCancel(context.Background())
	scheduler := jobs.NewScheduler(repo, mail, locker, logger,
		time.Duration(cfg.LowStockCheckMinutes)*time.Minute, cfg.DailyReportHour)
	scheduler.Start(jobCtx)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Address()).Info("inventory backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopJobs()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Warn("close error")
		}
	}

	logger.Info("server stopped")
}
