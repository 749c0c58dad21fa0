package main

import (
	"log"

	"go.uber.org/zap"

	"invite-exchange/internal/config"
	"invite-exchange/internal/database"
	"invite-exchange/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(&cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("Failed to apply migrations", zap.Error(err))
	}

	zlog.Info("Migrations applied", zap.String("index", database.ActiveCoreCodeIndex))
}
