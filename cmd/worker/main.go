package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/trainbooking/config"
	"github.com/Domenick1991/trainbooking/internal/kafka"
	"github.com/Domenick1991/trainbooking/internal/logging"
	"github.com/Domenick1991/trainbooking/internal/notify"
	"github.com/Domenick1991/trainbooking/internal/repository"
	"github.com/Domenick1991/trainbooking/internal/service/booking"
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
	logging.Setup(cfg.Log, "trainbooking-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	// The worker only audits, so it needs neither cache nor producer.
	bookingService := booking.NewBookingService(
		repository.NewTransactor(pool, cfg.Booking.LockTimeout()),
		repository.NewSeatRepository(pool),
		repository.NewBookingRepository(pool),
		nil,
		nil,
		"",
	)

	sender := notify.NewSender()
	if cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		defer consumer.Close()

		go func() {
			err := consumer.Consume(ctx, kafka.BookingEventHandler(sender.Send))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("consumer stopped")
			}
		}()
	}

	auditTicker := time.NewTicker(time.Duration(cfg.Worker.AuditIntervalMinutes) * time.Minute)
	defer auditTicker.Stop()

	log.Info().Str("topic", cfg.Kafka.NotificationsTopic).Int("audit_interval_minutes", cfg.Worker.AuditIntervalMinutes).Msg("worker started")

	for {
		select {
		case <-auditTicker.C:
			violations, err := bookingService.AuditLedger(ctx)
			if err != nil {
				log.Error().Err(err).Msg("audit seat ledger")
				continue
			}
			if len(violations) > 0 {
				log.Error().Int("violations", len(violations)).Msg("seat ledger audit failed")
			}
		case <-ctx.Done():
			log.Info().Int("notifications_sent", sender.Sent()).Msg("shutting down")
			return
		}
	}
}
