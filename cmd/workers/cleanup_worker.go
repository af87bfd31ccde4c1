package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/config"
	"launchpad/student-portal/onboarding-backend/internal/wizard"
)

// CleanupWorker purges abandoned wizard states and leftover legacy progress
// rows on a cron schedule.
type CleanupWorker struct {
	repo      *wizard.PostgresRepository
	logger    *zap.Logger
	retention time.Duration
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(repo *wizard.PostgresRepository, logger *zap.Logger, retention time.Duration) *CleanupWorker {
	return &CleanupWorker{repo: repo, logger: logger, retention: retention}
}

// Run executes one cleanup pass.
func (w *CleanupWorker) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := w.repo.PurgeStale(ctx, w.retention)
	if err != nil {
		w.logger.Error("Cleanup pass failed", zap.Error(err))
		return
	}

	if purged > 0 {
		w.logger.Info("Purged abandoned wizard states", zap.Int64("count", purged))
	}
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	worker := NewCleanupWorker(wizard.NewPostgresRepository(db), logger, cfg.Onboarding.Retention())

	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.Onboarding.CleanupSchedule, worker); err != nil {
		logger.Fatal("Invalid cleanup schedule",
			zap.String("schedule", cfg.Onboarding.CleanupSchedule), zap.Error(err))
	}

	// Run one pass at startup, then follow the schedule
	worker.Run()
	scheduler.Start()

	logger.Info("Cleanup worker started",
		zap.String("schedule", cfg.Onboarding.CleanupSchedule),
		zap.Duration("retention", cfg.Onboarding.Retention()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received")
	<-scheduler.Stop().Done()
	logger.Info("Cleanup worker stopped")
}
