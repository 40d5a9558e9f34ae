package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meshfront/meshfront/config"
	"github.com/meshfront/meshfront/internal/certwatch"
	"github.com/meshfront/meshfront/internal/deadcache"
	"github.com/meshfront/meshfront/internal/discovery"
	"github.com/meshfront/meshfront/internal/evidence"
	"github.com/meshfront/meshfront/internal/httpserver"
	"github.com/meshfront/meshfront/internal/metrics"
	"github.com/meshfront/meshfront/internal/nginx"
	"github.com/meshfront/meshfront/internal/prober"
	"github.com/meshfront/meshfront/internal/reconciler"
	"github.com/meshfront/meshfront/internal/scheduler"
	"github.com/meshfront/meshfront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(256, log)
	collector.Start(ctx)

	cache, err := buildCache(cfg)
	if err != nil {
		log.Error("Failed to build dead-endpoint cache", slog.Any("err", err))
		os.Exit(1)
	}

	hp, err := buildProber(cfg, cache, log)
	if err != nil {
		log.Error("Failed to build prober", slog.Any("err", err))
		os.Exit(1)
	}

	source, err := buildSource(cfg, log)
	if err != nil {
		log.Error("Failed to build endpoint source", slog.Any("err", err))
		os.Exit(1)
	}

	control := nginx.NewExecController(cfg.Nginx.Binary, log)

	applier, err := buildApplier(cfg, control, log)
	if err != nil {
		log.Error("Failed to build config applier", slog.Any("err", err))
		os.Exit(1)
	}

	sink := evidence.NewSink(cfg.Evidence.Dir, log)
	engine := reconciler.New(applier, sink, log)

	interval, err := time.ParseDuration(cfg.Reconcile.Interval)
	if err != nil {
		log.Error("Invalid reconcile interval", slog.Any("err", err))
		os.Exit(1)
	}

	sched := scheduler.New(source, hp, engine, cache, collector, cfg.Probe.Port, interval, log)

	srv, err := httpserver.New(cfg.Server.AdminAddress, setupRouter(engine, collector, cfg.Mode))
	if err != nil {
		log.Error("Failed to create admin server", slog.Any("err", err))
		os.Exit(1)
	}

	watcher := certwatch.New(cfg.TLS.CertDir, control, log)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Warn("Certificate watcher stopped", slog.Any("err", err))
		}
	}()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	schedErrCh := make(chan error, 1)
	go func() {
		schedErrCh <- sched.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Admin server failed", slog.Any("err", err))
			os.Exit(1)
		}
	case err := <-schedErrCh:
		if err != nil && ctx.Err() == nil {
			log.Error("Reconciliation loop failed", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func buildCache(cfg *config.Config) (*deadcache.Cache, error) {
	ttl, err := time.ParseDuration(cfg.Cache.Duration)
	if err != nil {
		return nil, err
	}
	return deadcache.New(ttl), nil
}

func buildProber(cfg *config.Config, cache *deadcache.Cache, log *slog.Logger) (*prober.Prober, error) {
	connectTimeout, err := time.ParseDuration(cfg.Probe.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	totalTimeout, err := time.ParseDuration(cfg.Probe.TotalTimeout)
	if err != nil {
		return nil, err
	}

	return prober.New(cache, log, prober.Options{
		Protocol:       cfg.Probe.Protocol,
		HTTPPath:       cfg.Probe.HTTPPath,
		ConnectTimeout: connectTimeout,
		TotalTimeout:   totalTimeout,
		MaxParallel:    cfg.Probe.MaxParallel,
	}), nil
}

func buildSource(cfg *config.Config, log *slog.Logger) (discovery.Source, error) {
	switch cfg.Mode {
	case config.ModeSingle, config.ModeMulti:
		return discovery.NewStaticSource(cfg.Discovery.StaticTargets), nil
	default:
		timeout, err := time.ParseDuration(cfg.Discovery.Timeout)
		if err != nil {
			return nil, err
		}
		return discovery.NewMeshSource(cfg.Discovery.APIURL, cfg.Discovery.NamePrefix, cfg.Discovery.KeepPrefix, timeout, log), nil
	}
}

func buildApplier(cfg *config.Config, control nginx.Controller, log *slog.Logger) (*nginx.Applier, error) {
	failTimeout, err := time.ParseDuration(cfg.Passive.FailTimeout)
	if err != nil {
		return nil, err
	}

	retryTimeout, err := time.ParseDuration(cfg.Retry.Timeout)
	if err != nil {
		return nil, err
	}

	renderer, err := nginx.NewRenderer(cfg.Mode, nginx.Params{
		Domains:      cfg.Domains,
		CertDir:      cfg.TLS.CertDir,
		ListenPort:   cfg.Nginx.ListenPort,
		EvidenceDir:  cfg.Evidence.Dir,
		MaxFails:     cfg.Passive.MaxFails,
		FailTimeout:  failTimeout,
		RetryTries:   cfg.Retry.Tries,
		RetryTimeout: retryTimeout,
		RateLimit: nginx.RateLimit{
			Enabled: cfg.RateLimit.Enabled,
			Rate:    cfg.RateLimit.Rate,
			Burst:   cfg.RateLimit.Burst,
			Paths:   cfg.RateLimit.Paths,
		},
	})
	if err != nil {
		return nil, err
	}

	return nginx.NewApplier(renderer, control, cfg.Nginx.ConfigPath, log), nil
}
