package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/waypointhq/onboarding-backend/internal/clients/assessments"
	"github.com/waypointhq/onboarding-backend/internal/clients/training"
	"github.com/waypointhq/onboarding-backend/internal/data/repos"
	"github.com/waypointhq/onboarding-backend/internal/data/uow"
	"github.com/waypointhq/onboarding-backend/internal/db"
	"github.com/waypointhq/onboarding-backend/internal/handlers"
	"github.com/waypointhq/onboarding-backend/internal/middleware"
	"github.com/waypointhq/onboarding-backend/internal/observability"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/platform/envutil"
	"github.com/waypointhq/onboarding-backend/internal/platform/sendgrid"
	"github.com/waypointhq/onboarding-backend/internal/realtime/bus"
	"github.com/waypointhq/onboarding-backend/internal/server"
	"github.com/waypointhq/onboarding-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "onboarding-backend",
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
	})
	if shutdownOtel != nil {
		defer func() { _ = shutdownOtel(context.Background()) }()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	journeyRepo := repos.NewJourneyRepo(thePG, log)
	phaseRepo := repos.NewPhaseRepo(thePG, log)
	activityRepo := repos.NewActivityRepo(thePG, log)
	unit := uow.New(thePG, log)

	// Realtime feed
	var activityFeed services.ActivityFeed
	if envutil.Str("REDIS_ADDR", "") != "" {
		redisBus, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis bus init failed, activity feed disabled", "error", err)
		} else {
			defer redisBus.Close()
			activityFeed = services.NewActivityFeed(log, redisBus)
		}
	}

	// External clients
	var assessmentsAPI assessments.Client
	if envutil.Str("ASSESSMENT_SERVICE_URL", "") != "" {
		assessmentsAPI, err = assessments.NewFromEnv(log)
		if err != nil {
			log.Warn("Assessment client init failed", "error", err)
		}
	}
	var trainingAPI training.Client
	if envutil.Str("TRAINING_SERVICE_URL", "") != "" {
		trainingAPI, err = training.NewFromEnv(log)
		if err != nil {
			log.Warn("Training client init failed", "error", err)
		}
	}
	var mailClient sendgrid.Client
	if envutil.Str("SENDGRID_API_KEY", "") != "" {
		mailClient, err = sendgrid.NewFromEnv(log)
		if err != nil {
			log.Warn("SendGrid client init failed", "error", err)
		}
	}

	// Services
	log.Info("Setting up services from main...")
	notifier := services.NewMailNotifier(log, userRepo, mailClient)
	journeyService := services.NewJourneyService(log, unit, journeyRepo, phaseRepo, activityRepo, userRepo, activityFeed)
	phaseService := services.NewPhaseService(log, unit, journeyRepo, phaseRepo, activityRepo, activityFeed)
	advanceService := services.NewAdvanceService(log, unit, journeyRepo, phaseRepo, activityRepo, assessmentsAPI, trainingAPI, activityFeed)
	mentorService := services.NewMentorService(log, unit, journeyRepo, phaseRepo, userRepo, activityRepo, notifier, activityFeed)
	progressService := services.NewProgressService(log, journeyRepo, phaseRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	journeyHandler := handlers.NewJourneyHandler(journeyService, progressService)
	phaseHandler := handlers.NewPhaseHandler(phaseService, advanceService)
	mentorHandler := handlers.NewMentorHandler(mentorService)
	signalHandler := handlers.NewSignalHandler(advanceService)

	// Middleware
	authMiddleware, err := middleware.NewAuthMiddlewareFromEnv(log)
	if err != nil {
		log.Error("Auth middleware init failed", "error", err)
		os.Exit(1)
	}
	signalMiddleware, err := middleware.NewSignalMiddlewareFromEnv(log)
	if err != nil {
		log.Error("Signal middleware init failed", "error", err)
		os.Exit(1)
	}

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		SignalMiddleware: signalMiddleware,
		JourneyHandler:   journeyHandler,
		PhaseHandler:     phaseHandler,
		MentorHandler:    mentorHandler,
		SignalHandler:    signalHandler,
	})

	port := envutil.Str("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
