// Package main runs the background analytics worker standalone.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smart-lms/backend/config"
	"github.com/smart-lms/backend/internal/analytics"
	"github.com/smart-lms/backend/internal/attendance"
	"github.com/smart-lms/backend/internal/emotions"
	"github.com/smart-lms/backend/internal/meetings"
	"github.com/smart-lms/backend/internal/worker"
	"github.com/smart-lms/backend/pkg/database"
	"github.com/smart-lms/backend/pkg/queue"
	"github.com/smart-lms/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	meetingRepo := meetings.NewRepository(pool)
	attendanceRepo := attendance.NewRepository(pool)
	emotionRepo := emotions.NewRepository(pool)
	reportRepo := analytics.NewRepository(pool)

	service := analytics.NewService(meetingRepo, attendanceRepo, emotionRepo,
		analytics.AttendanceParams{
			LateThresholdPercent: cfg.Analytics.LateThresholdPercent,
			LateGrace:            cfg.Analytics.LateGrace,
		}, cfg.Analytics.AttentivenessWeights)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewAnalyticsProcessor(service, reportRepo, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
