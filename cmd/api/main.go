package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/openshelf/library-portal-api/api/swagger"
	"github.com/openshelf/library-portal-api/internal/handler"
	"github.com/openshelf/library-portal-api/internal/middleware"
	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/repository"
	"github.com/openshelf/library-portal-api/internal/service"
	"github.com/openshelf/library-portal-api/pkg/cache"
	"github.com/openshelf/library-portal-api/pkg/config"
	"github.com/openshelf/library-portal-api/pkg/database"
	"github.com/openshelf/library-portal-api/pkg/logger"
	"github.com/openshelf/library-portal-api/pkg/middleware/cors"
	"github.com/openshelf/library-portal-api/pkg/middleware/requestid"
	"github.com/openshelf/library-portal-api/pkg/storage"
)

// @title Library Portal API
// @version 1.0.0
// @description Attendance, seat booking and reporting backend for the library portal
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal("connect redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, log)

	// Services.
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, profileRepo, validate, log, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	settingsSvc := service.NewSettingsService(settingsRepo, cfg.Settings.FilePath, validate, log)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, redisClient, settingsSvc, cacheRepo, validate, log, service.AttendanceConfig{
		CheckInCooldown:   cfg.Attendance.CheckInCooldown,
		AutoCheckoutEvery: cfg.Attendance.AutoCheckoutEvery,
		ChangeFeedChannel: cfg.Attendance.ChangeFeedChannel,
	})

	dashboardSvc := service.NewDashboardService(attendanceRepo, profileRepo, cacheRepo, cfg.Dashboard.CacheTTL, log)
	occupancySvc := service.NewOccupancyService(settingsRepo, redisClient, cfg.Attendance.ChangeFeedChannel, log)
	qrSvc := service.NewQRService(log)
	bookingSvc := service.NewBookingService(bookingRepo, validate, log)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, validate, log)
	announcementSvc := service.NewAnnouncementService(announcementRepo, validate, log)
	profileSvc := service.NewProfileService(profileRepo, validate, log)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo, validate, log)
	accountSvc := service.NewAccountService(userRepo, profileRepo, timeSlotSvc, validate, log)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		log.Fatal("init report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(attendanceRepo, profileRepo, reportStore, signer, metricsSvc, log, service.ReportConfig{
		WorkerConcurrency: cfg.Reports.WorkerConcurrency,
		WorkerRetries:     cfg.Reports.WorkerRetries,
		CleanupInterval:   cfg.Reports.CleanupInterval,
		SignedURLTTL:      cfg.Reports.SignedURLTTL,
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	occupancyHandler := handler.NewOccupancyHandler(occupancySvc, metricsSvc)
	qrHandler := handler.NewQRHandler(qrSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	feedbackHandler := handler.NewFeedbackHandler(feedbackSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	studentHandler := handler.NewStudentHandler(accountSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "database"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/profile", profileHandler.Get)
		authed.PUT("/profile", profileHandler.Update)

		authed.POST("/attendance/check-in", attendanceHandler.CheckIn)
		authed.POST("/attendance/check-in/scan", attendanceHandler.ScanCheckIn)
		authed.POST("/attendance/check-out", attendanceHandler.CheckOut)
		authed.GET("/attendance/status", attendanceHandler.Status)
		authed.GET("/attendance", attendanceHandler.History)

		authed.GET("/dashboard/stats", dashboardHandler.Stats)
		authed.GET("/library/status", occupancyHandler.Status)

		authed.GET("/announcements", announcementHandler.List)
		authed.GET("/timeslots", timeSlotHandler.ListMine)

		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings", bookingHandler.ListMine)
		authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)

		authed.POST("/feedback", feedbackHandler.Submit)
		authed.GET("/feedback", feedbackHandler.ListMine)

		authed.GET("/qr", qrHandler.Image)
		authed.GET("/qr/payload", qrHandler.Payload)

		authed.GET("/reports/export", reportHandler.ExportMine)
		authed.GET("/reports/certificate", reportHandler.Certificate)

		authed.GET("/settings", settingsHandler.GetPortal)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/students", studentHandler.Create)
		admin.GET("/students", studentHandler.List)
		admin.GET("/students/:id", studentHandler.Get)
		admin.PUT("/students/:id", studentHandler.Update)
		admin.DELETE("/students/:id", studentHandler.Delete)
		admin.PUT("/students/:id/timeslots", timeSlotHandler.AdminAssign)
		admin.GET("/students/:id/qr", qrHandler.StudentImage)

		admin.GET("/attendance", attendanceHandler.AdminList)
		admin.POST("/attendance/:id/check-out", attendanceHandler.AdminForceCheckOut)

		admin.GET("/bookings", bookingHandler.AdminList)
		admin.PUT("/bookings/:id/status", bookingHandler.AdminSetStatus)

		admin.GET("/feedback", feedbackHandler.AdminList)
		admin.PUT("/feedback/:id/status", feedbackHandler.AdminUpdateStatus)

		admin.POST("/announcements", announcementHandler.Create)
		admin.PUT("/announcements/:id", announcementHandler.Update)
		admin.DELETE("/announcements/:id", announcementHandler.Delete)

		admin.GET("/settings", settingsHandler.GetPortal)
		admin.PUT("/settings", settingsHandler.SavePortal)
		admin.GET("/settings/capacity", settingsHandler.GetCapacity)
		admin.PUT("/settings/capacity", settingsHandler.UpdateCapacity)

		admin.GET("/reports/export", reportHandler.Export)
		admin.POST("/reports/jobs", reportHandler.Enqueue)
		admin.GET("/reports/jobs/:id", reportHandler.JobStatus)
		admin.GET("/reports/download/:token", reportHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	occupancySvc.Start(ctx)
	reportSvc.Start(ctx)
	go attendanceSvc.RunAutoCheckout(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	occupancySvc.Stop()
	reportSvc.Stop()

	log.Info("bye")
}
