// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courseforge/internal/config"
	"courseforge/internal/domain/ports/adapter"
	aiAdapters "courseforge/internal/infra/adapters/ai"
	"courseforge/internal/infra/api/apiv1"
	pg "courseforge/internal/infra/db/postgres"
	"courseforge/internal/infra/logging"
	"courseforge/internal/infra/metrics"
	red "courseforge/internal/infra/redis"
	"courseforge/internal/infra/sched"
	"courseforge/internal/infra/web"
	"courseforge/internal/infra/worker"
	"courseforge/internal/usecase"
)

// set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI, relaxed auth)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis (optional; degrades to no locking/limiting/caching) ----
	var (
		locker  usecase.SourceLocker
		limiter usecase.RateLimiter
		cache   usecase.StatusCache
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
		cache = red.NewJobStatusCache(redisClient, cfg.Redis.StatusTTL)
	} else {
		logger.Warn().Msg("redis.url not set; running without source locks, rate limits and status cache")
	}

	// ---- Repositories ----
	jobRepo := pg.NewGenerationJobRepo(pool, tm)
	courseRepo := pg.NewCourseRepo(pool)
	notifRepo := pg.NewNotificationRepo(pool)

	// ---- Use cases ----
	genUC := usecase.NewGenerationUseCase(jobRepo, courseRepo, notifRepo, tm, locker, limiter, cache, &cfg.Jobs, logger)
	notifUC := usecase.NewNotificationUseCase(notifRepo, logger)
	hkUC := usecase.NewHousekeepingUseCase(jobRepo, notifRepo, genUC, &cfg.Jobs, logger)
	statsUC := usecase.NewStatsUseCase(jobRepo, courseRepo, notifRepo, logger)

	// ---- Course generator (Gemini -> OpenAI failover, noop in dev) ----
	var generator adapter.CourseGenerator
	if cfg.Runtime.Dev && cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		generator = aiAdapters.NewNoopGenerator(0)
		logger.Warn().Msg("no AI provider configured; using noop generator")
	} else {
		var chain []adapter.CourseGenerator
		if cfg.AI.GeminiKey != "" {
			g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.GeminiModel, cfg.AI.MaxOutputTokens)
			if err != nil {
				logger.Fatal().Err(err).Msg("gemini adapter init failed")
			}
			chain = append(chain, g)
		}
		if cfg.AI.OpenAIKey != "" {
			o, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AI.MaxOutputTokens, cfg.AI.PromptTokenLimit)
			if err != nil {
				logger.Fatal().Err(err).Msg("openai adapter init failed")
			}
			chain = append(chain, o)
		}
		if len(chain) == 0 {
			logger.Fatal().Msg("no AI provider configured: set ai.gemini_key or ai.openai_key")
		}
		generator = aiAdapters.NewMultiAdapter(cfg.AI.DefaultProvider, chain...)
	}

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Jobs.Workers)
	pool2.Start(ctx)
	defer pool2.Stop()

	processor := worker.NewGenerationProcessor(genUC, generator, &cfg.Jobs, logger)
	go processor.Start(ctx, pool2)

	sweeper := sched.NewStuckJobSweeper(cfg.Jobs.SweepInterval, hkUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	cleaner := sched.NewCleanupWorker(cfg.Jobs.CleanupInterval, hkUC, logger)
	go func() { _ = cleaner.Run(ctx) }()

	// ---- Client API ----
	authSecret := cfg.Server.AuthSecret
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	apiv1.RegisterAPIV1(r, apiv1.NewServer(genUC, notifUC, apiv1.NewAuth(authSecret), logger))

	apiServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("client API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("client API server error")
		}
	}()

	// ---- Admin API ----
	adminMux := http.NewServeMux()
	web.NewServer(statsUC, cfg.Server.AdminAPIKey, logger).RegisterRoutes(adminMux)
	adminServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.AdminPort), Handler: adminMux}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("admin API listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin API server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = adminServer.Shutdown(shutdownCtx)
	cancel()
}
