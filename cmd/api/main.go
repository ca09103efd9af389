package main

import (
	"context"
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

	_ "github.com/consultly/consultly-api/api/swagger"
	"github.com/consultly/consultly-api/internal/handler"
	"github.com/consultly/consultly-api/internal/middleware"
	"github.com/consultly/consultly-api/internal/models"
	"github.com/consultly/consultly-api/internal/repository"
	"github.com/consultly/consultly-api/internal/service"
	"github.com/consultly/consultly-api/pkg/cache"
	"github.com/consultly/consultly-api/pkg/config"
	"github.com/consultly/consultly-api/pkg/database"
	"github.com/consultly/consultly-api/pkg/jobs"
	"github.com/consultly/consultly-api/pkg/logger"
	corsmiddleware "github.com/consultly/consultly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/consultly/consultly-api/pkg/middleware/requestid"
	"github.com/consultly/consultly-api/pkg/storage"
)

// @title Consultly API
// @version 0.1.0
// @description Consultation booking marketplace
// @BasePath /api/v1
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, slot cache disabled", "error", err)
		redisClient = nil
	}

	exportStore, err := storage.NewExportStore(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	consultantRepo := repository.NewConsultantRepository(db)
	catalogRepo := repository.NewConsultantServiceRepository(db)
	workingHourRepo := repository.NewWorkingHourRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	slotCache := repository.NewSlotCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	availabilitySvc := service.NewAvailabilityService(workingHourRepo, holidayRepo, bookingRepo, slotCache, metricsSvc, logr, service.AvailabilityConfig{
		GranularityMins: cfg.Booking.GranularityMins,
		CacheTTL:        cfg.Availability.CacheTTL,
	})
	bookingSvc := service.NewBookingService(bookingRepo, consultantRepo, catalogRepo, availabilitySvc, slotCache, metricsSvc, validate, logr, service.BookingConfig{
		HoldDuration:   cfg.Booking.HoldDuration,
		SweepChunkSize: cfg.Booking.SweepChunkSize,
	})
	ratingSvc := service.NewRatingService(ratingRepo, logr)
	reviewSvc := service.NewReviewService(reviewRepo, bookingRepo, ratingSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(workingHourRepo, holidayRepo, consultantRepo, validate, logr)
	signer := storage.NewDownloadSigner(cfg.JWT.Secret, cfg.Export.ResultTTL)
	exportSvc := service.NewExportService(bookingRepo, consultantRepo, exportStore, signer, cfg.APIPrefix, cfg.Export.ResultTTL, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

		api.GET("/consultants/:id/slots", availabilityHandler.DaySlots)
		api.GET("/consultants/:id/reviews", reviewHandler.ListByConsultant)
		api.GET("/consultants/:id/working-hours", scheduleHandler.ListWorkingHours)
		api.GET("/consultants/:id/holidays", scheduleHandler.ListHolidays)

		authed := api.Group("", middleware.JWT(authSvc))
		{
			authed.POST("/bookings", middleware.RequireRoles(models.RoleClient), bookingHandler.Create)
			authed.GET("/bookings", bookingHandler.List)
			authed.GET("/bookings/:id", bookingHandler.Get)
			authed.POST("/bookings/:id/confirm", bookingHandler.Confirm)
			authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)
			authed.POST("/bookings/:id/review", middleware.RequireRoles(models.RoleClient), reviewHandler.Create)

			authed.PUT("/reviews/:id", reviewHandler.Update)
			authed.DELETE("/reviews/:id", reviewHandler.Delete)
			authed.POST("/reviews/:id/restore", reviewHandler.Restore)

			consultantOrAdmin := middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin)
			authed.POST("/consultants/:id/working-hours", consultantOrAdmin, scheduleHandler.AddWorkingHour)
			authed.DELETE("/consultants/:id/working-hours/:hourId", consultantOrAdmin, scheduleHandler.RemoveWorkingHour)
			authed.POST("/consultants/:id/holidays", consultantOrAdmin, scheduleHandler.AddHoliday)
			authed.DELETE("/consultants/:id/holidays/:holidayId", consultantOrAdmin, scheduleHandler.RemoveHoliday)
			authed.POST("/consultants/:id/export", consultantOrAdmin, exportHandler.GenerateLedger)
		}

		api.GET("/exports/:token", exportHandler.Download)
	}

	scheduler := jobs.NewScheduler(logr)
	scheduler.Register("booking-expiry", cfg.Booking.SweepInterval, bookingSvc.ExpireOldPending)
	scheduler.Register("booking-completion", cfg.Booking.SweepInterval, bookingSvc.CompleteElapsed)
	scheduler.Register("export-cleanup", cfg.Export.SweepInterval, exportSvc.SweepStale)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
