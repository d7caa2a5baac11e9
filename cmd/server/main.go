package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"seqreg/internal/ingest"
	"seqreg/internal/ingest/ncbi"
	"seqreg/internal/platform/config"
	"seqreg/internal/platform/httpserver"
	"seqreg/internal/platform/logger"
	platformmetrics "seqreg/internal/platform/metrics"
	platformredis "seqreg/internal/platform/redis"
	"seqreg/internal/registry"
	registrymetrics "seqreg/internal/registry/metrics"
	"seqreg/internal/registry/service"
	"seqreg/pkg/platform/circuit"
	"seqreg/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registryMetrics := registrymetrics.New(reg)
	httpMetrics := platformmetrics.New(reg)

	svc, err := registry.NewInMemoryService(
		service.WithLogger(log),
		service.WithMetrics(registryMetrics),
	)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var cache ncbi.Cache = ncbi.NewMemoryCache(cfg.NCBI.CacheTTL)
	if redisClient != nil {
		cache = ncbi.NewRedisCache(redisClient.Client, cfg.NCBI.CacheTTL)
		log.Info("ncbi cache backed by redis")
	}
	fetcher := ncbi.NewClient(cfg.NCBI.BaseURL,
		ncbi.WithAPIKey(cfg.NCBI.APIKey),
		ncbi.WithContact("seqreg", cfg.NCBI.Email),
		ncbi.WithTimeout(cfg.NCBI.Timeout),
		ncbi.WithCache(cache),
		ncbi.WithBreaker(circuit.New("ncbi",
			circuit.WithFailureThreshold(cfg.NCBI.BreakerThreshold),
			circuit.WithCooldown(cfg.NCBI.BreakerCooldown),
		)),
		ncbi.WithLogger(log),
	)

	ingester, err := ingest.New(svc,
		ingest.WithFetcher(fetcher),
		ingest.WithLogger(log),
		ingest.WithMetrics(registryMetrics),
	)
	if err != nil {
		return fmt.Errorf("build ingest: %w", err)
	}
	preload(ctx, ingester, cfg.Preload, log)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(redisClient))
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	registry.NewHandler(svc, ingester, log, httpMetrics, cfg.Server.RequestTimeout).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting seqreg", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// preload adds each configured FASTA file. Failures are logged and skipped.
func preload(ctx context.Context, ingester *ingest.Service, paths []string, log *slog.Logger) {
	for _, path := range paths {
		seqID, err := ingester.FromFile(ctx, path)
		if err != nil {
			log.Warn("preload skipped", "path", path, "error", err)
			continue
		}
		log.Info("preloaded sequence", "path", path, "sequence_id", seqID.String())
	}
}

func healthHandler(redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status["redis"] = "ok"
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
