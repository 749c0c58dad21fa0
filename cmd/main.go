package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invite-exchange/internal/auth"
	"invite-exchange/internal/config"
	"invite-exchange/internal/database"
	"invite-exchange/internal/handlers"
	"invite-exchange/internal/jobs"
	"invite-exchange/internal/logger"
	"invite-exchange/internal/middleware"
	"invite-exchange/internal/ratelimit"
	"invite-exchange/internal/repository"
	"invite-exchange/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	gin.SetMode(cfg.Server.GinMode)
	auth.InitJWT(cfg.Auth.JWTSecret)

	// Connect to database
	db, err := database.Connect(&cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := repository.NewRepository(db)
	svc, err := services.New(repo, &cfg.Pool, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Rate limiting is optional; Redis errors degrade to no limiting
	var limiter middleware.RateLimiter
	rl, err := ratelimit.NewLimiter(&cfg.Redis, zlog)
	if err != nil {
		zlog.Warn("Rate limiting disabled", zap.Error(err))
	} else if rl != nil {
		defer rl.Close()
		limiter = rl
	}

	statsJob := jobs.NewPoolStatsJob(svc.Pool, cfg.Jobs.PoolStatsInterval, zlog)
	if err := statsJob.Start(); err != nil {
		zlog.Fatal("Failed to start pool stats job", zap.Error(err))
	}

	router := handlers.NewRouter(cfg, svc, limiter, zlog)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("health", "http://localhost:"+cfg.Server.Port+"/health"),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := statsJob.Stop(); err != nil {
		zlog.Warn("Pool stats job did not stop cleanly", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	zlog.Info("Server exited")
}
