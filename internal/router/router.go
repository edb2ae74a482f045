package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/peerval-go-api/internal/config"
	"github.com/noah-isme/peerval-go-api/internal/handler"
	"github.com/noah-isme/peerval-go-api/internal/middleware"
	"github.com/noah-isme/peerval-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler              *handler.AuthHandler
	AdminUserHandler         *handler.AdminUserHandler
	TeachingHandler          *handler.TeachingHandler
	AdminActivityHandler     *handler.AdminActivityHandler
	CourseHandler            *handler.CourseHandler
	BatchHandler             *handler.BatchHandler
	ExamHandler              *handler.ExamHandler
	StudentExamHandler       *handler.StudentExamHandler
	StudentEvaluationHandler *handler.StudentEvaluationHandler
	NotificationHandler      *handler.NotificationHandler
	JWTMiddleware            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow))
		deps.AuthHandler.Register(auth)
	}

	// Admin surface (account management, teaching assignments, audit trail)
	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole("admin"))
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
	}
	if deps.TeachingHandler != nil {
		deps.TeachingHandler.Register(admin.Group("/teaching-assignments"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}

	// Teacher surface (courses, batches, exams, peer evaluation admin)
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses", jwtMiddleware, middleware.RequireRole("teacher")))
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.Register(api.Group("/batches", jwtMiddleware, middleware.RequireRole("teacher")))
	}
	if deps.ExamHandler != nil {
		deps.ExamHandler.Register(api.Group("/exams", jwtMiddleware, middleware.RequireRole("teacher")))
	}

	// Student surface (available exams, submissions, evaluation tasks)
	student := api.Group("/student", jwtMiddleware, middleware.RequireRole("student"))
	if deps.StudentExamHandler != nil {
		deps.StudentExamHandler.Register(student.Group("/exams"))
	}
	if deps.StudentEvaluationHandler != nil {
		deps.StudentEvaluationHandler.Register(student.Group("/evaluations"))
	}

	if deps.NotificationHandler != nil {
		requireUser := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{Role: middleware.AuthRoleAny})
		notifications := api.Group("/notifications", jwtMiddleware, requireUser)
		deps.NotificationHandler.Register(notifications)
	}
}
