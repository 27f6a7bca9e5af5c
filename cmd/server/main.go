package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/smallwat3r/pastebin/internal/app"
	"github.com/smallwat3r/pastebin/internal/config"
	"github.com/smallwat3r/pastebin/internal/domain"
	"github.com/smallwat3r/pastebin/internal/metrics"
	"github.com/smallwat3r/pastebin/internal/utility"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithField("err", err).Fatal("Could not load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if cfg.Gops {
		if err := agent.Listen(agent.Options{
			ShutdownCleanup: true,
		}); err != nil {
			log.WithField("err", err).Warn("Could not start gops agent")
		} else {
			defer agent.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithField("err", err).Fatal("Failed to parse redis url")
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithField("err", err).Fatal("Failed to connect to redis")
		}
		defer rdb.Close()
	}

	m := metrics.NewRegistry()
	opts := []domain.FileOption{domain.WithEvictHook(m.Evicted)}
	if cfg.SealKey != "" {
		sealer, err := utility.NewSealer(cfg.SealKey)
		if err != nil {
			log.WithField("err", err).Fatal("Failed to set up record sealing")
		}
		opts = append(opts, domain.WithSealer(sealer))
	}
	repo := domain.NewFileRepository(cfg.DataDir, opts...)

	if cfg.ReapInterval > 0 {
		go domain.RunReaper(ctx, repo, cfg.ReapInterval)
	}

	handler := app.NewHandler(repo, m)
	router := app.NewRouter(handler, app.RouterConfig{
		Security:    app.SecurityHeadersConfig{RequireHTTPS: cfg.RequireHTTPS},
		RateLimiter: app.NewRateLimiter(rdb, app.DefaultRateLimitConfig()),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":     srv.Addr,
			"data_dir": cfg.DataDir,
			"sealed":   cfg.SealKey != "",
			"redis":    rdb != nil,
		}).Info("Listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithField("err", err).Fatal("Server failed")
		}
		return
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithField("err", err).Error("Graceful shutdown failed")
	}
}
