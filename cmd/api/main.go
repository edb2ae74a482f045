package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerval-go-api/internal/config"
	"github.com/noah-isme/peerval-go-api/internal/database"
	"github.com/noah-isme/peerval-go-api/internal/handler"
	"github.com/noah-isme/peerval-go-api/internal/middleware"
	"github.com/noah-isme/peerval-go-api/internal/models"
	"github.com/noah-isme/peerval-go-api/internal/repository"
	"github.com/noah-isme/peerval-go-api/internal/router"
	"github.com/noah-isme/peerval-go-api/internal/service"
	cloud "github.com/noah-isme/peerval-go-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Batch{},
		&models.TeacherCourse{},
		&models.Enrollment{},
		&models.Exam{},
		&models.Question{},
		&models.Submission{},
		&models.Evaluation{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	teachingRepo := repository.NewTeachingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	authService := service.NewAuthService(userRepo, validate, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
	}, logger)
	adminUserService := service.NewAdminUserService(userRepo, validate, activityService, logger)
	teachingService := service.NewTeachingService(teachingRepo, userRepo, courseRepo, batchRepo, validate, activityService, logger)
	courseService := service.NewCourseService(courseRepo, batchRepo, teachingRepo, validate, activityService, logger)
	rosterService := service.NewRosterService(enrollmentRepo, userRepo, batchRepo, teachingRepo, validate, activityService, notificationService, logger)
	examService := service.NewExamService(examRepo, courseRepo, batchRepo, teachingRepo, evaluationRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, examRepo, enrollmentRepo, uploader, notificationService, cfg.SubmissionMaxMB, logger)
	evaluationService := service.NewEvaluationService(evaluationRepo, examRepo, submissionRepo, validate, notificationService, activityService, redisClient, cfg.ResultsCacheTTL, logger)

	rootCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(rootCtx)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(rootCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("failed to ensure bootstrap admin: %v", err)
		}
	}

	authHandler := handler.NewAuthHandler(authService, logger)
	adminUserHandler := handler.NewAdminUserHandler(adminUserService, logger)
	teachingHandler := handler.NewTeachingHandler(teachingService, logger)
	adminActivityHandler := handler.NewAdminActivityHandler(activityService, logger)
	courseHandler := handler.NewCourseHandler(courseService, logger)
	batchHandler := handler.NewBatchHandler(courseService, rosterService, logger)
	examHandler := handler.NewExamHandler(examService, submissionService, evaluationService, logger)
	studentExamHandler := handler.NewStudentExamHandler(submissionService, logger)
	studentEvaluationHandler := handler.NewStudentEvaluationHandler(evaluationService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:              authHandler,
		AdminUserHandler:         adminUserHandler,
		TeachingHandler:          teachingHandler,
		AdminActivityHandler:     adminActivityHandler,
		CourseHandler:            courseHandler,
		BatchHandler:             batchHandler,
		ExamHandler:              examHandler,
		StudentExamHandler:       studentExamHandler,
		StudentEvaluationHandler: studentEvaluationHandler,
		NotificationHandler:      notificationHandler,
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
