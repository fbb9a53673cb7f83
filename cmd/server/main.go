package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/config"
	"github.com/studyhive/studyroom-server/internal/database"
	"github.com/studyhive/studyroom-server/internal/handler"
	"github.com/studyhive/studyroom-server/internal/jobs"
	"github.com/studyhive/studyroom-server/internal/middleware"
	"github.com/studyhive/studyroom-server/internal/presence"
	"github.com/studyhive/studyroom-server/internal/redis"
	"github.com/studyhive/studyroom-server/internal/repository"
	"github.com/studyhive/studyroom-server/internal/service"
	"github.com/studyhive/studyroom-server/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	roomRepo := repository.NewRoomRepository(db.DB)
	timerRepo := repository.NewTimerRepository(db.DB)

	clock := clockwork.NewRealClock()
	tracker := presence.NewTracker(clock)

	authService := service.NewAuthService(userRepo)
	roomService := service.NewRoomService(db, roomRepo)
	timerService := service.NewTimerService(timerRepo, userRepo, tracker, clock)
	leaderboardService := service.NewLeaderboardService(
		timerRepo, userRepo, roomRepo, redisClient, clock, cfg.LeaderboardTTL(),
	)
	statsService := service.NewStatsService(timerRepo, roomRepo)

	hub := ws.NewHub(redisClient)
	defer hub.Close()

	dispatcher := ws.NewDispatcher(timerService, roomService, hub)
	wsHandler := ws.NewHandler(hub, dispatcher, cfg.AllowedOrigin)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client)
	loginLimiter := middleware.NewLoginRateLimiter(redisClient.Client)

	authHandler := handler.NewAuthHandler(authService)
	roomsHandler := handler.NewRoomsHandler(roomService, leaderboardService)
	statsHandler := handler.NewStatsHandler(statsService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Post("/signup", authHandler.SignUp)
		r.With(loginLimiter.Handler).Post("/signin", authHandler.SignIn)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		// The WebSocket endpoint must stay outside the request timeout;
		// connections are long-lived.
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Post("/signout", authHandler.SignOut)
			r.Get("/analysis", statsHandler.Analysis)
			r.Mount("/rooms", roomsHandler.Routes())
		})
	})

	broadcastJob := jobs.NewBroadcastJob(timerService, hub, clock, cfg.BroadcastInterval())
	broadcastJob.Start()
	defer broadcastJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
