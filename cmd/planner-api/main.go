package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kantikoala/planner-api/internal/handler"
	internalmiddleware "github.com/kantikoala/planner-api/internal/middleware"
	"github.com/kantikoala/planner-api/internal/planner"
	"github.com/kantikoala/planner-api/internal/repository"
	"github.com/kantikoala/planner-api/internal/service"
	"github.com/kantikoala/planner-api/pkg/cache"
	"github.com/kantikoala/planner-api/pkg/config"
	"github.com/kantikoala/planner-api/pkg/database"
	"github.com/kantikoala/planner-api/pkg/logger"
	corsmiddleware "github.com/kantikoala/planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kantikoala/planner-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, plan reports will not be cached", "error", err)
		redisClient = nil
	}

	engine, err := planner.New(planner.Config{
		DayStart:        cfg.Planner.DayStart,
		DayEnd:          cfg.Planner.DayEnd,
		BufferMinutes:   cfg.Planner.BufferMinutes,
		MinSessionHours: cfg.Planner.MinSessionHours,
		MaxLookbackDays: cfg.Planner.MaxLookbackDays,
	}, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid planner configuration", "error", err)
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	authService := service.NewAuthService(userRepo, settingsRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "planner-api",
	})
	eventService := service.NewEventService(eventRepo, settingsRepo, db, validate, logr)
	icsService := service.NewICSService(eventRepo, db, logr)
	settingsService := service.NewSettingsService(settingsRepo, eventRepo, db, validate, logr)
	var reportCache service.ReportCache
	if redisClient != nil {
		reportCache = redisClient
	}
	plannerService := service.NewPlannerService(eventRepo, settingsRepo, db, reportCache, metricsService, engine, cfg.Planner.ReportTTL, logr)
	exportService := service.NewExportService(eventRepo, settingsRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Events:   handler.NewEventHandler(eventService, icsService),
		Settings: handler.NewSettingsHandler(settingsService),
		Plan:     handler.NewPlanHandler(plannerService, exportService),
	}, authService)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
