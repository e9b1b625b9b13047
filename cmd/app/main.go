package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/trainbooking/api"
	"github.com/Domenick1991/trainbooking/config"
	"github.com/Domenick1991/trainbooking/internal/auth"
	"github.com/Domenick1991/trainbooking/internal/bootstrap"
	"github.com/Domenick1991/trainbooking/internal/cache"
	"github.com/Domenick1991/trainbooking/internal/kafka"
	"github.com/Domenick1991/trainbooking/internal/logging"
	"github.com/Domenick1991/trainbooking/internal/repository"
	"github.com/Domenick1991/trainbooking/internal/service/booking"
	"github.com/Domenick1991/trainbooking/internal/service/trains"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log, "trainbooking-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	// bookings reference users, so the user store migrates first.
	userDB, err := repository.OpenUserStore(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open user store")
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, availability will be read from postgres")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		log.Warn().Err(err).Msg("kafka unavailable, booking events will be dropped")
	}
	cancel()

	tx := repository.NewTransactor(pool, cfg.Booking.LockTimeout())
	trainRepo := repository.NewTrainRepository(pool)
	seatRepo := repository.NewSeatRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(userDB)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authService := auth.NewService(userRepo, tokens)
	trainService := trains.NewTrainService(tx, trainRepo, seatRepo, redisCache)
	bookingService := booking.NewBookingService(
		tx,
		seatRepo,
		bookingRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithRetry(cfg.Booking.MaxAttempts, cfg.Booking.RetryBackoff()),
		booking.WithReserveTimeout(cfg.Booking.ReserveTimeout()),
		booking.WithPublishAttempts(cfg.Kafka.PublishAttempts),
	)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		Auth:       tokens,
		Admin:      auth.NewAdminKey(cfg.Auth.AdminAPIKey),
		SwaggerDir: cfg.HTTP.SwaggerDir,
	}, api.Handlers{
		Users:    api.NewUserHandler(authService),
		Trains:   api.NewTrainHandler(trainService),
		Bookings: api.NewBookingHandler(bookingService),
	})

	if err := bootstrap.Run(ctx, cfg, router); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
