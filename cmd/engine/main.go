package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wingo/internal/config"
	cronrunner "wingo/internal/cron"
	"wingo/internal/db"
	"wingo/internal/events"
	"wingo/internal/handler"
	"wingo/internal/logger"
	"wingo/internal/metrics"
	"wingo/internal/outcome"
	gormrepository "wingo/internal/repository/gorm"
	"wingo/internal/scheduler"
	"wingo/internal/service"
	"wingo/internal/settle"
	"wingo/internal/verify"
)

func main() {
	cfgPath := os.Getenv("WG_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("WG_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := gormrepository.New(dbConn.Gorm)

	bus := events.NewRedisBus(cfg.Redis, logger)
	defer bus.Close()
	if err := bus.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, events will be dropped until it recovers", zap.Error(err))
	}

	settingsSvc := &service.GameSettingsService{Repo: store, Logger: logger, Defaults: cfg.Game}
	if err := settingsSvc.EnsureDefaults(ctx); err != nil {
		logger.Warn("seed default game settings failed", zap.Error(err))
	}

	tracker := outcome.NewProfitTracker(cfg.Game.TargetProfitPercent)
	engine := &settle.Engine{
		Repo:     store,
		Bus:      bus,
		Tracker:  tracker,
		Settings: settingsSvc,
		Logger:   logger,
	}
	verifier := verify.New(store, cfg.Game.LaneDurations, logger)
	sched := scheduler.New(store, engine, settingsSvc, tracker, verifier, bus, logger,
		cfg.Game.LaneDurations, cfg.Game.Cooldown)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.StartServer(cfg.Metrics.Port, func(ctx context.Context) error {
			return dbConn.SQL.PingContext(ctx)
		})
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	adminHandler := &handler.AdminHandler{
		Repo:      store,
		Scheduler: sched,
		Verifier:  verifier,
		Settings:  settingsSvc,
	}
	adminHandler.Register(router)
	wagerHandler := &handler.WagerHandler{
		Intake: &service.WagerIntakeService{Repo: store, Logger: logger},
	}
	wagerHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	cronRunner := cronrunner.New(logger, ctx)
	freshness := cfg.Game.VerifierFreshness
	if freshness <= 0 {
		freshness = 5 * time.Second
	}
	deep := cfg.Game.VerifierDeepInterval
	if deep <= 0 {
		deep = 30 * time.Second
	}
	_, err = cronRunner.Add("@every "+freshness.String(), func(ctx context.Context) {
		bus.Publish(ctx, events.New(events.TypeLaneSnapshot, map[string]any{"lanes": sched.Snapshot()}))
	})
	if err != nil {
		logger.Warn("cron register lane snapshot failed", zap.Error(err))
	}
	_, err = cronRunner.Add("@every "+deep.String(), func(ctx context.Context) {
		for _, res := range verifier.VerifyAll(ctx) {
			if !res.IsConsistent {
				logger.Warn("lane inconsistent", zap.String("detail", res.Message))
			}
		}
	})
	if err != nil {
		logger.Warn("cron register verifier pass failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	sched.Start(ctx)
	logger.Info("engine started",
		zap.Ints("lanes", cfg.Game.LaneDurations),
		zap.Duration("cooldown", cfg.Game.Cooldown))

	<-ctx.Done()

	logger.Info("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
