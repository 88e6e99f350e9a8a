package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"finance_ledger/internal/cache"
	"finance_ledger/internal/config"
	"finance_ledger/internal/db"
	httpServer "finance_ledger/internal/http"
	"finance_ledger/internal/http/handlers"
	"finance_ledger/internal/http/middleware"
	"finance_ledger/internal/logger"
	"finance_ledger/internal/queue"
	"finance_ledger/internal/repository"
	"finance_ledger/internal/service"
	"finance_ledger/internal/worker"
	"finance_ledger/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	// Shared Redis client for the cache, the recalculation queue and the
	// rate limiter. Without REDIS_ADDR all three degrade gracefully.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, cache and recalculation disabled", "error", err)
		}
		cancel()
	} else {
		logger.Warn("REDIS_ADDR not set, cache and recalculation disabled")
	}

	txnRepo := repository.NewTransactionRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)

	listingCache := cache.New(rdb, cfg.CacheTTL)
	recalcQueue := queue.New(rdb, queue.RecalculateQueue)

	hub := ws.NewHub()
	go hub.Run()

	ledger := service.NewLedgerService(txnRepo, listingCache, recalcQueue, hub)
	auth := service.NewAuthService(userRepo)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workerWG sync.WaitGroup
	if rdb != nil {
		recalc := &worker.Recalculator{
			Txns:         txnRepo,
			Users:        userRepo,
			Jobs:         recalcQueue,
			Workers:      cfg.WorkerCount,
			MaxAttempts:  cfg.JobMaxAttempts,
			RetryBackoff: cfg.JobRetryBackoff,
		}
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			recalc.Start(workerCtx)
		}()
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandler(dbPool, ledger, auth)
	hh := handlers.NewHealthHandler(dbPool, version)
	limiter := middleware.NewLimiter(rdb)
	httpServer.RegisterRoutes(r, h, hh, hub, limiter)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	stopWorkers()
	workerWG.Wait()

	logger.Info("server exited")
}
