package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable builder, joint lesson configuration and weekly lesson tracking.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, "sma", logr)
	defer cacheRepo.Close() //nolint:errcheck
	timetableRepo := repository.NewTimetableRepository(db)
	classRepo := repository.NewClassGroupRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	jointRepo := repository.NewJointRepository(db)
	weekRepo := repository.NewWeekRepository(db)
	lessonRepo := repository.NewLessonRecordRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Cache.Enabled)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	timetableSvc := service.NewTimetableService(
		timetableRepo, classRepo, subjectRepo, teacherRepo, jointRepo, db, cacheSvc, metricsSvc, validate, logr,
		service.TimetableServiceConfig{CheckExisting: cfg.Timetable.CheckExisting, CacheTTL: cfg.Timetable.CacheTTL},
	)
	warmup := jobs.NewQueue("master-warmup", func(ctx context.Context, job jobs.Job) error {
		return timetableSvc.WarmMaster(ctx, job.Key)
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 2 * time.Second, Logger: logr})
	if cfg.Cache.Enabled {
		warmup.Start(context.Background())
		defer warmup.Stop()
		timetableSvc.SetWarmer(warmup)
	}
	jointSvc := service.NewJointConfigService(jointRepo, subjectRepo, classRepo, db, validate, logr)
	lessonSvc := service.NewLessonService(
		weekRepo, lessonRepo, timetableRepo, teacherRepo, db, metricsSvc, validate, logr,
		service.LessonServiceConfig{DefaultAmount: cfg.Lessons.DefaultAmount},
	)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	jointHandler := handler.NewJointHandler(jointSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	checks := []handler.HealthCheck{{Name: "postgres", Ping: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc.Handler(), checks...)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	admin := api.Group("")
	admin.Use(internalmiddleware.RequireAdmin())
	{
		admin.GET("/timetables/:mode/builder", timetableHandler.Builder)
		admin.POST("/timetables/:mode/builder", timetableHandler.Submit)
		admin.GET("/timetables/:mode/master", timetableHandler.Master)
		admin.GET("/timetables/:mode/master/export", timetableHandler.Export)

		admin.GET("/joint/subjects", jointHandler.ListSubjects)
		admin.PUT("/joint/subjects/:subjectId", jointHandler.SetSubject)
		admin.GET("/joint/sets", jointHandler.ListSets)
		admin.GET("/joint/sets/:id", jointHandler.GetSet)
		admin.POST("/joint/sets", jointHandler.CreateSet)
		admin.PUT("/joint/sets/:id", jointHandler.UpdateSet)
		admin.DELETE("/joint/sets/:id", jointHandler.DeleteSet)

		admin.GET("/weeks", lessonHandler.ListWeeks)
		admin.POST("/weeks", lessonHandler.CreateWeek)
		admin.POST("/lessons/generate", lessonHandler.Generate)
		admin.POST("/lessons/payments", lessonHandler.UpdatePayments)
		admin.GET("/lessons/stats", lessonHandler.Stats)
	}

	api.PATCH("/lessons/:id/status",
		internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher),
		lessonHandler.UpdateStatus)
	api.GET("/me/timetable", internalmiddleware.RequireRoles(models.RoleTeacher), lessonHandler.MyTimetable)
	api.GET("/teachers/:id/timetable",
		internalmiddleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), internalmiddleware.SelfTeacher),
		lessonHandler.TeacherTimetable)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
