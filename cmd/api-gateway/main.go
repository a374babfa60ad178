package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/luct-reporting-api/api/swagger"
	"github.com/noah-isme/luct-reporting-api/internal/handler"
	"github.com/noah-isme/luct-reporting-api/internal/middleware"
	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	"github.com/noah-isme/luct-reporting-api/internal/repository"
	"github.com/noah-isme/luct-reporting-api/internal/service"
	"github.com/noah-isme/luct-reporting-api/pkg/cache"
	"github.com/noah-isme/luct-reporting-api/pkg/config"
	"github.com/noah-isme/luct-reporting-api/pkg/database"
	"github.com/noah-isme/luct-reporting-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/luct-reporting-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/luct-reporting-api/pkg/middleware/requestid"
)

// @title LUCT Reporting API
// @version 1.0.0
// @description Lecture report escalation chain for students, lecturers, principal lecturers and program leaders
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	hub := notify.NewHub(cfg.Notifications.StreamBufferSize, logr)
	broadcaster := notify.NewBroadcaster(redisClient, cfg.Notifications.RedisChannel, hub, logr)
	go broadcaster.Listen(context.Background())
	defer broadcaster.Close()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	reportRepo := repository.NewReportRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	monitoringRepo := repository.NewMonitoringRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, hub, broadcaster, metricsSvc, cfg.Notifications.HistoryPageSize, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "luct-reporting-api",
	})
	courseSvc := service.NewCourseService(courseRepo, userRepo, nil, logr)
	reportSvc := service.NewReportService(reportRepo, courseRepo, assignmentRepo, notificationSvc, nil, logr)
	summarySvc := service.NewSummaryService(summaryRepo, reportRepo, courseRepo, notificationSvc, nil, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, userRepo, notificationSvc, nil, logr)
	ratingSvc := service.NewRatingService(ratingRepo, courseRepo, userRepo, nil, logr)
	monitoringSvc := service.NewMonitoringService(monitoringRepo, courseRepo, userRepo, courseRepo, notificationSvc, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	summaryHandler := handler.NewSummaryHandler(summarySvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	monitoringHandler := handler.NewMonitoringHandler(monitoringSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, metricsSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", middleware.Audit(userRepo, "login", "auth"), authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/courses", courseHandler.List)
	protected.GET("/courses/:id", courseHandler.Get)
	protected.POST("/courses",
		middleware.RequireRoles(models.RoleProgramLeader),
		middleware.Audit(userRepo, "course.create", "courses"),
		courseHandler.Create)
	protected.POST("/classes",
		middleware.RequireRoles(models.RoleProgramLeader),
		middleware.Audit(userRepo, "class.create", "classes"),
		courseHandler.CreateClass)
	protected.POST("/classes/:id/enroll",
		middleware.RequireRoles(models.RoleStudent),
		courseHandler.Enroll)

	protected.GET("/reports", reportHandler.List)
	protected.GET("/reports/:id", reportHandler.Get)
	protected.POST("/reports",
		middleware.RequireRoles(models.RoleLecturer),
		middleware.Audit(userRepo, "report.submit", "lecture_reports"),
		reportHandler.Submit)
	protected.PUT("/reports/:id/feedback",
		middleware.RequireRoles(models.RolePrincipalLecturer),
		middleware.Audit(userRepo, "report.feedback", "report_feedback"),
		reportHandler.AttachFeedback)
	protected.POST("/reports/:id/finalize",
		middleware.RequireRoles(models.RolePrincipalLecturer),
		middleware.Audit(userRepo, "report.finalize", "lecture_reports"),
		reportHandler.Finalize)

	protected.GET("/summaries", summaryHandler.List)
	protected.GET("/summaries/:id", summaryHandler.Get)
	protected.POST("/summaries",
		middleware.RequireRoles(models.RolePrincipalLecturer),
		middleware.Audit(userRepo, "summary.create", "summary_reports"),
		summaryHandler.Create)
	protected.PUT("/summaries/:id/feedback",
		middleware.RequireRoles(models.RoleProgramLeader),
		middleware.Audit(userRepo, "summary.feedback", "summary_feedback"),
		summaryHandler.AttachFeedback)

	protected.GET("/assignments", assignmentHandler.List)
	protected.POST("/assignments",
		middleware.RequireRoles(models.RoleProgramLeader),
		middleware.Audit(userRepo, "assignment.create", "lecturer_assignments"),
		assignmentHandler.Create)
	protected.POST("/assignments/:id/revoke",
		middleware.RequireRoles(models.RoleProgramLeader),
		middleware.Audit(userRepo, "assignment.revoke", "lecturer_assignments"),
		assignmentHandler.Revoke)

	protected.PUT("/ratings",
		middleware.RequireRoles(models.RoleStudent),
		ratingHandler.Submit)
	protected.GET("/lecturers/:id/ratings",
		middleware.RequireStaff(),
		ratingHandler.ListForLecturer)

	protected.GET("/monitoring", monitoringHandler.ListMine)
	protected.POST("/monitoring",
		middleware.Audit(userRepo, "monitoring.create", "monitoring_logs"),
		monitoringHandler.Create)
	protected.POST("/monitoring/:id/respond",
		middleware.RequireStaff(),
		middleware.Audit(userRepo, "monitoring.respond", "monitoring_logs"),
		monitoringHandler.Respond)

	protected.GET("/notifications", notificationHandler.List)
	protected.GET("/notifications/stream", notificationHandler.Stream)
	protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
