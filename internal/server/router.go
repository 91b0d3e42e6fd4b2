package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/waypointhq/onboarding-backend/internal/handlers"
	"github.com/waypointhq/onboarding-backend/internal/middleware"
	"github.com/waypointhq/onboarding-backend/internal/platform/envutil"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	SignalMiddleware *middleware.SignalMiddleware
	JourneyHandler   *handlers.JourneyHandler
	PhaseHandler     *handlers.PhaseHandler
	MentorHandler    *handlers.MentorHandler
	SignalHandler    *handlers.SignalHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("onboarding-backend"))

	// Cors
	origins := envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(origins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Secret"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Signals   ||
	// ===============
	signals := router.Group("/api/signals")
	signals.Use(cfg.SignalMiddleware.RequireSharedSecret())
	signals.POST("/assessment-completed", cfg.SignalHandler.AssessmentCompleted)
	signals.POST("/training-completed", cfg.SignalHandler.TrainingCompleted)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Journeys
	api.POST("/journeys", cfg.JourneyHandler.Create)
	api.GET("/journeys/:id", cfg.JourneyHandler.Get)
	api.GET("/journeys/:id/progress", cfg.JourneyHandler.Progress)
	api.GET("/journeys/:id/activities", cfg.JourneyHandler.Activities)
	api.POST("/journeys/:id/pause", cfg.JourneyHandler.Pause)
	api.POST("/journeys/:id/resume", cfg.JourneyHandler.Resume)
	api.POST("/journeys/:id/phases", cfg.PhaseHandler.Insert)
	// Phases
	api.PATCH("/phases/:id", cfg.PhaseHandler.Update)
	api.DELETE("/phases/:id", cfg.PhaseHandler.Delete)
	api.POST("/phases/:id/skip", cfg.PhaseHandler.Skip)
	api.POST("/phases/:id/complete", cfg.PhaseHandler.Complete)
	api.POST("/phases/:id/assessment", cfg.PhaseHandler.LinkAssessment)
	api.POST("/phases/:id/training", cfg.PhaseHandler.LinkTraining)
	// Mentors
	api.POST("/phases/:id/mentor", cfg.MentorHandler.Assign)
	api.DELETE("/phases/:id/mentor", cfg.MentorHandler.Remove)

	return router
}
