package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-skill-api/api/swagger"
	"github.com/noah-isme/classroom-skill-api/internal/classroom"
	"github.com/noah-isme/classroom-skill-api/internal/handler"
	"github.com/noah-isme/classroom-skill-api/internal/middleware"
	"github.com/noah-isme/classroom-skill-api/internal/repository"
	"github.com/noah-isme/classroom-skill-api/internal/service"
	"github.com/noah-isme/classroom-skill-api/pkg/cache"
	"github.com/noah-isme/classroom-skill-api/pkg/config"
	"github.com/noah-isme/classroom-skill-api/pkg/database"
	"github.com/noah-isme/classroom-skill-api/pkg/jobs"
	"github.com/noah-isme/classroom-skill-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-skill-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-skill-api/pkg/middleware/requestid"
)

// @title Classroom Skill API
// @version 1.0.0
// @description Answers voice-assistant education queries from Google Classroom
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	classroomFactory := classroom.NewFactory(classroom.Config{
		BaseURL:      cfg.Classroom.BaseURL,
		Timeout:      cfg.Classroom.Timeout,
		MaxRetries:   cfg.Classroom.MaxRetries,
		RetryBackoff: cfg.Classroom.RetryBackoff,
	}, nil, metrics, logr.Named("classroom"))
	apiFactory := func(token string) service.ClassroomAPI { return classroomFactory.ForToken(token) }

	engine := service.NewAggregationService(service.AggregationServiceParams{
		Metrics: metrics,
		Logger:  logr.Named("aggregation"),
		Config:  service.AggregationServiceConfig{BatchConcurrency: cfg.Batch.Concurrency},
	})
	skillSvc := service.NewSkillService(engine, apiFactory, nil, logr.Named("skill"))

	checks := map[string]handler.ReadinessCheck{}
	var (
		mappingSvc *service.UserMappingService
		regSvc     *service.RegistrationService
	)

	if cfg.Registrations.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to prepare schema", zap.Error(err))
		}
		checks["postgres"] = db.PingContext

		var cacheSvc *service.CacheService
		if cfg.MappingCache.Enabled {
			redisClient, err := cache.NewRedis(cfg.Redis)
			if err != nil {
				logr.Warn("redis unavailable, mapping cache disabled", zap.Error(err))
			} else {
				defer redisClient.Close()
				checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
				cacheRepo := repository.NewCacheRepository(redisClient, cfg.MappingCache.KeyPrefix, logr.Named("cache"))
				cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.MappingCache.TTL, logr.Named("cache"), true)
			}
		}

		mappingRepo := repository.NewUserMappingRepository(db, metrics)
		mappingSvc = service.NewUserMappingService(mappingRepo, cacheSvc, cfg.MappingCache.TTL, logr.Named("mappings"))
		regSvc = service.NewRegistrationService(service.RegistrationServiceParams{
			Factory:  apiFactory,
			Mappings: mappingRepo,
			Cache:    mappingSvc,
			Metrics:  metrics,
			Logger:   logr.Named("registrations"),
			Config: service.RegistrationServiceConfig{
				Topic:            cfg.Registrations.Topic,
				BatchConcurrency: cfg.Batch.Concurrency,
			},
		})
		cleanup := jobs.NewQueue[service.RegistrationCleanup]("registration-cleanup", regSvc.DeleteRegistration, jobs.QueueConfig{
			Workers:    cfg.Registrations.Workers,
			MaxRetries: cfg.Registrations.Retries,
			Logger:     logr,
		})
		regSvc.SetCleanup(cleanup)
		cleanup.Start(ctx)
		defer cleanup.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	skillHandler := handler.NewSkillHandler(skillSvc, nil, logr.Named("http"))
	mappings := handler.NewMappingHandler(nil)
	if regSvc != nil {
		skillHandler = handler.NewSkillHandler(skillSvc, regSvc, logr.Named("http"))
		mappings = handler.NewMappingHandler(mappingSvc)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.CallerAuth(cfg.Caller.Secret, cfg.Caller.Issuer), middleware.RequireSkill(cfg.Caller.AllowedSkills...))
	api.POST("/skill/query", skillHandler.Query)
	api.POST("/skill/events", skillHandler.Event)
	api.GET("/mappings/:platformUserId", mappings.Get)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("registrations", cfg.Registrations.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
