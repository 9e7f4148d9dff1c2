package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/turnomed/clinic-api/internal/config"
	"github.com/turnomed/clinic-api/internal/handler"
	appointmentHandler "github.com/turnomed/clinic-api/internal/handler/appointment"
	availabilityHandler "github.com/turnomed/clinic-api/internal/handler/availability"
	slotHandler "github.com/turnomed/clinic-api/internal/handler/slot"
	"github.com/turnomed/clinic-api/internal/middleware"
	redisclient "github.com/turnomed/clinic-api/internal/redis"
	"github.com/turnomed/clinic-api/internal/repository/postgres"
	"github.com/turnomed/clinic-api/internal/router"
	appointmentService "github.com/turnomed/clinic-api/internal/service/appointment"
	availabilityService "github.com/turnomed/clinic-api/internal/service/availability"
	slotService "github.com/turnomed/clinic-api/internal/service/slot"
	"github.com/turnomed/clinic-api/pkg/auth"
	"github.com/turnomed/clinic-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var locker redisclient.Locker
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, slot generation will run unlocked")
	} else {
		locker = redisclient.NewGenerationLocker(redisClient, cfg.Redis.LockTTL)
	}

	appMetrics := metrics.NewMetrics("clinic", "api")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(baseRepo)
	slotRepo := postgres.NewSlotRepository(baseRepo)
	specialistRepo := postgres.NewSpecialistRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	recordRepo := postgres.NewMedicalRecordRepository(baseRepo)

	// Services
	availabilitySvc := availabilityService.NewService(availabilityRepo, slotRepo, specialistRepo, locker)
	appointmentSvc := appointmentService.NewService(appointmentRepo, slotRepo, specialistRepo, recordRepo)
	slotSvc := slotService.NewService(slotRepo, specialistRepo, cfg.Cache.SpecialtyTTL, cfg.Cache.CleanupInterval)

	// Middleware and handlers
	tokenSvc := auth.NewTokenService(cfg.JWT)
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)

	h := handler.NewHandler(db)
	availabilityH := availabilityHandler.NewHandler(availabilitySvc, appMetrics)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc, appMetrics)
	slotH := slotHandler.NewHandler(slotSvc)

	r := router.NewRouter(
		authMiddleware,
		availabilityH,
		slotH,
		appointmentH,
		h,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(),
			RequestTimeout:   time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MetricsPrefix:    "clinic_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server exited")
}
