package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/csvio"
	"github.com/shriyanssahoo/Byte-Me/internal/handler"
	internalmiddleware "github.com/shriyanssahoo/Byte-Me/internal/middleware"
	"github.com/shriyanssahoo/Byte-Me/internal/repository"
	"github.com/shriyanssahoo/Byte-Me/internal/scheduler"
	"github.com/shriyanssahoo/Byte-Me/internal/service"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	"github.com/shriyanssahoo/Byte-Me/pkg/cache"
	"github.com/shriyanssahoo/Byte-Me/pkg/config"
	"github.com/shriyanssahoo/Byte-Me/pkg/database"
	"github.com/shriyanssahoo/Byte-Me/pkg/jobs"
	"github.com/shriyanssahoo/Byte-Me/pkg/logger"
	corsmiddleware "github.com/shriyanssahoo/Byte-Me/pkg/middleware/cors"
	reqidmiddleware "github.com/shriyanssahoo/Byte-Me/pkg/middleware/requestid"
	"github.com/shriyanssahoo/Byte-Me/pkg/storage"
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

	gridCfg := timegrid.DefaultConfig()
	if cfg.Grid.DayStart != "" {
		gridCfg.DayStart = cfg.Grid.DayStart
	}
	if cfg.Grid.DayEnd != "" {
		gridCfg.DayEnd = cfg.Grid.DayEnd
	}
	if cfg.Grid.SlotMinutes > 0 {
		gridCfg.SlotMinutes = cfg.Grid.SlotMinutes
	}
	grid, err := timegrid.New(gridCfg)
	if err != nil {
		logr.Sugar().Fatalw("invalid grid configuration", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", redisErr)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, storeErr := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if storeErr != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", storeErr)
		}
		exportQueue = jobs.NewQueue("timetable-exports", func(ctx context.Context, job jobs.Job) error {
			payload, ok := job.Payload.(service.ExportJob)
			if !ok {
				return fmt.Errorf("unexpected export payload for job %s", job.ID)
			}
			out, renderErr := csvio.TimetableCSV(payload.Timetable, grid)
			if renderErr != nil {
				return renderErr
			}
			name := fmt.Sprintf("%s/%s.csv", payload.Term, payload.TimetableID)
			if _, saveErr := store.Save(name, []byte(out)); saveErr != nil {
				return saveErr
			}
			logr.Info("timetable export written", zap.String("file", name))
			return nil
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(context.Background())
		defer exportQueue.Stop()
	}

	timetableRepo := repository.NewTimetableRepository(db)
	examRepo := repository.NewExamScheduleRepository(db)

	timetableSvc := service.NewTimetableService(timetableRepo, db, grid, metricsSvc, validate, logr, service.TimetableServiceConfig{
		ProposalTTL: cfg.Engine.ProposalTTL,
		Scheduler:   scheduler.Config{Days: cfg.Engine.Days, MaxProbes: cfg.Engine.MaxProbes},
		Cache:       cacheSvc,
		Exports:     exportQueue,
	})
	examSvc := service.NewExamService(examRepo, db, metricsSvc, validate, logr, cfg.Engine.ProposalTTL)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	examHandler := handler.NewExamHandler(examSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/metrics/snapshot", metricsHandler.Snapshot)

		timetables := api.Group("/timetables")
		{
			timetables.POST("/generate", timetableHandler.Generate)
			timetables.POST("/save", timetableHandler.Save)
			timetables.GET("", timetableHandler.List)
			timetables.GET("/:id/bookings", timetableHandler.Bookings)
			timetables.DELETE("/:id", timetableHandler.Delete)
			timetables.GET("/proposals/:id/export", timetableHandler.Export)
		}

		exams := api.Group("/exams")
		{
			exams.POST("/generate", examHandler.Generate)
			exams.POST("/save", examHandler.Save)
			exams.GET("", examHandler.List)
			exams.GET("/:id/sittings", examHandler.Sittings)
			exams.DELETE("/:id", examHandler.Delete)
			exams.GET("/proposals/:id/export", examHandler.Export)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
