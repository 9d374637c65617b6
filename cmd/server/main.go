package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/solscope/phoenixscope/internal/config"
	"github.com/solscope/phoenixscope/internal/handler"
	"github.com/solscope/phoenixscope/internal/ingest"
	"github.com/solscope/phoenixscope/internal/ledger"
	"github.com/solscope/phoenixscope/internal/metadata"
	"github.com/solscope/phoenixscope/internal/middleware"
	"github.com/solscope/phoenixscope/internal/phoenix"
	"github.com/solscope/phoenixscope/internal/pkg/logger"
	"github.com/solscope/phoenixscope/internal/repository"
	"github.com/solscope/phoenixscope/internal/service"
	"github.com/solscope/phoenixscope/internal/stream"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	fillRepo := repository.NewPostgresFillRepo(db)
	creditRepo := repository.NewPostgresCreditRepo(db)

	// Cursor Persistence (Redis > Memory)
	var cursorRepo ingest.CursorRepo
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			cursorRepo = repository.NewRedisCursorRepo(redisClient, cfg.Ledger.ProgramID)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, cursor will not survive restarts", "error", err)
		}
	}
	if cursorRepo == nil {
		cursorRepo = repository.NewMemoryCursorRepo()
	}

	// 3. Initialize Core Services
	rpcClient := ledger.NewRPCClient(cfg.Ledger.RPCURL,
		ledger.WithCommitment(cfg.Ledger.Commitment),
		ledger.WithTimeout(time.Duration(cfg.Ledger.TimeoutMs)*time.Millisecond),
		ledger.WithLogger(logger.Get()),
	)
	metaCache := metadata.NewCache(rpcClient, logger.Get())
	decoder := phoenix.NewDecoder(metaCache, logger.Get())
	hub := stream.NewHub()

	ingestor := ingest.New(rpcClient, decoder, metaCache, fillRepo, cursorRepo, hub, ingest.Options{
		ProgramID:    cfg.Ledger.ProgramID,
		PageLimit:    cfg.Ledger.PageLimit,
		MaxPages:     cfg.Ingest.MaxPages,
		PollInterval: time.Duration(cfg.Ingest.PollIntervalSeconds) * time.Second,
	}, logger.Get())

	admission := service.NewAdmission(creditRepo, cfg.Admission.Quota, time.Duration(cfg.Admission.WindowSeconds)*time.Second)
	querySvc := service.NewQueryService(fillRepo, admission, logger.Get())
	ohlcHandler := handler.NewOHLCHandler(querySvc)

	// 4. Setup Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.Server.RateQPS), cfg.Server.RateBurst)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "phoenixscope"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	r.GET("/ohlc", ohlcHandler.GetOHLC)
	r.GET("/ws/fills", hub.Handler())

	// 5. Run the two long-lived tasks under independent supervision:
	// a crash in one never takes the other down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Ingest.Enabled {
		go supervise(ctx, "ingestor", func(ctx context.Context) error {
			return ingestor.Run(ctx)
		})
	} else {
		logger.Warn("ingestion disabled by config, serving queries only")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go supervise(ctx, "api", func(ctx context.Context) error {
		logger.Info("🚀 PhoenixScope API started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exiting")
}

const restartBackoff = 5 * time.Second

// supervise runs a task forever, restarting it after a crash or error
// until the root context is cancelled.
func supervise(ctx context.Context, name string, fn func(context.Context) error) {
	for {
		err := runRecovered(ctx, name, fn)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Error("task exited, restarting", "task", name, "error", err, "backoff", restartBackoff.String())
		} else {
			logger.Warn("task exited unexpectedly, restarting", "task", name, "backoff", restartBackoff.String())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartBackoff):
		}
	}
}

func runRecovered(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "task", name, "panic", r)
		}
	}()
	return fn(ctx)
}
