// Package main runs the Smart-LMS meeting runtime HTTP server with the
// telemetry WebSocket channel and graceful shutdown.
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smart-lms/backend/config"
	"github.com/smart-lms/backend/internal/analytics"
	"github.com/smart-lms/backend/internal/attendance"
	"github.com/smart-lms/backend/internal/auth"
	"github.com/smart-lms/backend/internal/emotions"
	"github.com/smart-lms/backend/internal/meetings"
	"github.com/smart-lms/backend/internal/middleware"
	"github.com/smart-lms/backend/internal/telemetry"
	"github.com/smart-lms/backend/internal/worker"
	"github.com/smart-lms/backend/pkg/database"
	"github.com/smart-lms/backend/pkg/queue"
	"github.com/smart-lms/backend/pkg/redis"
	"github.com/smart-lms/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Stores
	meetingRepo := meetings.NewRepository(pool)
	attendanceRepo := attendance.NewRepository(pool)
	emotionRepo := emotions.NewRepository(pool)
	reportRepo := analytics.NewRepository(pool)

	// Telemetry channel: redis bridge, alert rules, hub
	redisPubSub := telemetry.NewRedisPubSub(rdb.Client, logger)
	alertEngine := telemetry.NewAlertEngine(cfg.Analytics.AlertStreak, 0.3, cfg.Analytics.AttentivenessWeights)
	hub := telemetry.NewHub(logger, redisPubSub, redisPubSub, attendanceRepo, emotionRepo, alertEngine)

	// Analytics
	analyticsService := analytics.NewService(meetingRepo, attendanceRepo, emotionRepo,
		analytics.AttendanceParams{
			LateThresholdPercent: cfg.Analytics.LateThresholdPercent,
			LateGrace:            cfg.Analytics.LateGrace,
		}, cfg.Analytics.AttentivenessWeights)
	analyticsHandler := analytics.NewHandler(analyticsService, reportRepo)

	// Meetings + analytics job queue
	jobQueue := queue.NewQueue(rdb.Client, logger)
	meetingHandler := meetings.NewHandler(meetingRepo, jobQueue, logger)
	analyticsProcessor := worker.NewAnalyticsProcessor(analyticsService, reportRepo, jobQueue, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/meetings", middleware.RequireRole("admin", "lecturer"), meetingHandler.Create)
		api.GET("/meetings/:id", meetingHandler.GetByID)
		api.POST("/meetings/:id/start", middleware.RequireRole("admin", "lecturer"), meetingHandler.Start)
		api.POST("/meetings/:id/end", middleware.RequireRole("admin", "lecturer"), meetingHandler.End)

		api.GET("/meetings/:id/analytics", middleware.RequireRole("admin", "lecturer"), analyticsHandler.GetMeetingAnalytics)
		api.GET("/meetings/:id/attendance", middleware.RequireRole("admin", "lecturer"), analyticsHandler.GetMeetingAttendance)
		api.GET("/meetings/:id/emotions", middleware.RequireRole("admin", "lecturer"), analyticsHandler.GetMeetingEmotions)

		api.GET("/subjects/:id/meetings", meetingHandler.ListBySubject)
		api.GET("/subjects/:id/analytics", middleware.RequireRole("admin", "lecturer"), analyticsHandler.GetSubjectRollup)
	}

	// WebSocket telemetry channel (token in query; no Authorization header required)
	router.GET("/ws", func(c *gin.Context) {
		telemetry.ServeWs(hub, logger, jwtValidate)(c)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process analytics worker (cmd/worker runs the same loop standalone)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go analyticsProcessor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
