// Package main is the entrypoint for the AlarmSense API server.
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
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/analysis"
	"github.com/minwoopark/alarmsense/internal/api"
	"github.com/minwoopark/alarmsense/internal/api/handler"
	mw "github.com/minwoopark/alarmsense/internal/api/middleware"
	"github.com/minwoopark/alarmsense/internal/api/response"
	"github.com/minwoopark/alarmsense/internal/cache"
	"github.com/minwoopark/alarmsense/internal/config"
	"github.com/minwoopark/alarmsense/internal/qa"
	"github.com/minwoopark/alarmsense/internal/rag"
	"github.com/minwoopark/alarmsense/internal/session"
	"github.com/minwoopark/alarmsense/internal/store"
	"github.com/minwoopark/alarmsense/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Optional Redis for rate limiting
	var rateLimit *mw.RateLimit
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rateLimit = mw.NewRateLimit(rdb, cfg.Server.RateLimitPerMin)
		slog.Info("redis connected, rate limiting enabled")
	} else {
		slog.Info("redis not configured, rate limiting disabled")
	}

	// 5. Retrieval store client
	ragClient := rag.NewHTTPClient(cfg.Rag.BaseURL, cfg.Rag.Collection, cfg.Rag.Timeout)
	if err := ragClient.Ready(ctx); err != nil {
		// degraded but usable: reports just won't persist until it recovers
		slog.Warn("retrieval store not ready", "error", err)
	} else {
		slog.Info("retrieval store ready", "collection", cfg.Rag.Collection)
	}

	// 6. Create AI provider
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 7. Caches and session store, torn down with the server
	analysisCache := cache.NewMemory[analysis.Result](cfg.Cache.AnalysisTTL)
	qaCache := cache.NewMemory[qa.Answer](cfg.Cache.QATTL)
	reportCache := cache.NewMemory[models.FinalReport](cfg.Cache.ReportTTL)
	analysisCache.StartSweeper(ctx, cfg.Cache.SweepInterval)
	qaCache.StartSweeper(ctx, cfg.Cache.SweepInterval)
	reportCache.StartSweeper(ctx, cfg.Cache.SweepInterval)

	sessions := session.NewStore(cfg.Cache.SessionTTL)

	// 8. Services
	pgStore := store.NewPostgresStore(pool)
	alarmSvc := analysis.NewService(
		aiProvider, pgStore, ragClient, sessions,
		analysisCache, reportCache, cfg.AI.InferenceTimeout,
	)
	questionSvc := qa.NewService(aiProvider, ragClient, qaCache, cfg.AI.InferenceTimeout)

	// 9. Build router with dependencies
	caches := handler.Caches{
		Analysis: analysisCache,
		QA:       qaCache,
		Report:   reportCache,
	}
	router := api.NewRouter(api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, ragClient),

		LatestHandler:  handler.NewLatestHandler(alarmSvc),
		Phase1Handler:  handler.NewPhase1Handler(alarmSvc),
		Phase2Handler:  handler.NewPhase2Handler(alarmSvc),
		AnalyzeHandler: handler.NewAnalyzeHandler(alarmSvc),

		AnswerHandler: handler.NewAnswerHandler(questionSvc),

		CacheStatsHandler: handler.NewCacheStatsHandler(caches),
		CacheClearHandler: handler.NewCacheClearHandler(caches),
	})

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // phase calls block on model inference
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and retrieval-store connectivity.
func healthHandler(s store.Store, rc rag.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database":        "ok",
			"retrieval_store": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := rc.Ready(r.Context()); err != nil {
			checks["retrieval_store"] = "degraded"
		}

		if checks["database"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}

		// a degraded retrieval store only disables report persistence
		response.JSON(w, map[string]any{
			"success":  true,
			"status":   "ok",
			"services": checks,
		})
	}
}
