package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	notificationapp "github.com/agency/backoffice/internal/application/notification"
	policyapp "github.com/agency/backoffice/internal/application/policy"
	statsapp "github.com/agency/backoffice/internal/application/stats"
	"github.com/agency/backoffice/internal/infrastructure/cache"
	"github.com/agency/backoffice/internal/infrastructure/config"
	"github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/agency/backoffice/internal/infrastructure/persistence"
	"github.com/agency/backoffice/internal/infrastructure/scheduler"
	"github.com/agency/backoffice/internal/interfaces/http/handler"
	"github.com/agency/backoffice/internal/interfaces/http/middleware"
	"github.com/agency/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() { _ = log.Sync() }()

	log.Info("Starting agency back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	statsCache, err := cache.NewStatsCacheFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create stats cache", zap.Error(err))
	}

	// Repositories. Templates are only touched inside transaction scopes,
	// so no standalone template repository is wired here.
	instanceRepo := persistence.NewGormInstanceRepository(db.DB)
	legacyRepo := persistence.NewGormLegacyPolicyRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	leadRepo := persistence.NewGormLeadRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	statsRepo := persistence.NewGormStatsRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	statsService := statsapp.NewStatsService(statsRepo, leadRepo, clientRepo, statsCache, log)
	policyService := policyapp.NewPolicyCompatibilityService(
		instanceRepo, legacyRepo, txScope, statsCache, log,
		policyapp.Config{
			UseTemplateSystem: cfg.Compatibility.UseTemplateSystem,
			AllowFallback:     cfg.Compatibility.AllowFallback,
			MigrateOnRead:     cfg.Compatibility.MigrateOnRead,
		},
	)

	// Expiry reminders on the daily cron
	sender := notificationapp.NewLoggingSender(log)
	reminderService := notificationapp.NewReminderService(
		instanceRepo, clientRepo, auditRepo, sender, sender, log,
		notificationapp.Config{
			WindowDays: cfg.Reminder.WindowDays,
			BatchLimit: cfg.Reminder.BatchLimit,
		},
	)
	reminderScheduler := scheduler.NewReminderScheduler(scheduler.ReminderSchedulerConfig{
		Enabled:      cfg.Reminder.Enabled,
		CronSchedule: cfg.Reminder.CronSchedule,
	}, reminderService, log)
	if err := reminderScheduler.Start(); err != nil {
		log.Fatal("Failed to start reminder scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		logger.RequestLogger(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsConfig),
	)

	r := router.NewRouter(engine)
	r.Register(handler.NewStatsHandler(statsService)).
		Register(handler.NewPolicyHandler(policyService)).
		Register(handler.NewSystemHandler(db, reminderScheduler))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reminderScheduler.Stop(ctx); err != nil {
		log.Warn("Reminder scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
