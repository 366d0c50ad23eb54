package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/kontak-api/api/swagger"
	"github.com/noah-isme/kontak-api/internal/handler"
	"github.com/noah-isme/kontak-api/internal/jobs"
	"github.com/noah-isme/kontak-api/internal/middleware"
	"github.com/noah-isme/kontak-api/internal/repository"
	"github.com/noah-isme/kontak-api/internal/service"
	"github.com/noah-isme/kontak-api/pkg/cache"
	"github.com/noah-isme/kontak-api/pkg/config"
	"github.com/noah-isme/kontak-api/pkg/database"
	"github.com/noah-isme/kontak-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/kontak-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/kontak-api/pkg/middleware/requestid"
)

// @title Kontak API
// @version 1.0.0
// @description Contact management with recurring schedules and availability queries
// @BasePath /
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	personRepo := repository.NewPersonRepository(db)
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	personSvc := service.NewPersonService(personRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(personRepo, eventRepo, cacheRepo, metricsSvc, service.AvailabilityConfig{
		CacheEnabled: cfg.Availability.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Availability.CacheTTL,
	}, logr)
	scheduleSvc := service.NewScheduleService(eventRepo, personRepo, availabilitySvc, logr)
	exportSvc := service.NewExportService(personRepo, eventRepo, logr, nil, nil, nil)

	authHandler := handler.NewAuthHandler(authSvc)
	personHandler := handler.NewPersonHandler(personSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	normalizer := jobs.NewNormalizer(scheduleSvc, jobs.NormalizerConfig{
		Enabled:  cfg.Normalizer.Enabled,
		Schedule: cfg.Normalizer.Schedule,
	}, logr)
	if err := normalizer.Start(context.Background()); err != nil {
		logr.Sugar().Fatalw("failed to start schedule normalizer", "error", err)
	}
	defer normalizer.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/persons", personHandler.List)
	api.GET("/persons/:id", personHandler.Get)
	api.GET("/persons/:id/events", scheduleHandler.List)
	api.GET("/persons/:id/events/export", scheduleHandler.Export)
	api.GET("/persons/:id/availability/free-at", availabilityHandler.FreeAt)
	api.GET("/persons/:id/availability/free-ranges", availabilityHandler.FreeRanges)
	api.GET("/persons/:id/export", exportHandler.Download)
	api.GET("/availability/common", availabilityHandler.CommonFree)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.POST("/persons", personHandler.Create)
	protected.PUT("/persons/:id", personHandler.Update)
	protected.DELETE("/persons/:id", personHandler.Delete)
	protected.POST("/persons/:id/events", scheduleHandler.Add)
	protected.PUT("/persons/:id/events/:eventId", scheduleHandler.Update)
	protected.DELETE("/persons/:id/events/:eventId", scheduleHandler.Delete)
	protected.DELETE("/persons/:id/events", scheduleHandler.Clear)
	protected.POST("/persons/:id/events/import", scheduleHandler.Import)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
