package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/Domenick1991/trainbooking/config"
	"github.com/Domenick1991/trainbooking/internal/auth"
	"github.com/Domenick1991/trainbooking/internal/domain"
	"github.com/Domenick1991/trainbooking/internal/logging"
	"github.com/Domenick1991/trainbooking/internal/repository"
	"github.com/Domenick1991/trainbooking/internal/service/trains"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

func sampleTrains() []trains.CreateTrainInput {
	return []trains.CreateTrainInput{
		{
			Name:          "Express 101",
			Source:        "Mumbai",
			Destination:   "Delhi",
			TotalSeats:    100,
			DepartureTime: time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC),
			ArrivalTime:   time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC),
		},
		{
			Name:          "Superfast 202",
			Source:        "Bangalore",
			Destination:   "Chennai",
			TotalSeats:    80,
			DepartureTime: time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC),
			ArrivalTime:   time.Date(2024, 3, 21, 14, 0, 0, 0, time.UTC),
		},
	}
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.Log, "trainbooking-seed")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	userDB, err := repository.OpenUserStore(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open user store")
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("hash admin password")
	}
	admin := &domain.User{Name: "Admin User", Email: "admin@example.com", PasswordHash: hash, Role: domain.RoleAdmin}
	switch err := repository.NewUserRepository(userDB).Create(ctx, admin); {
	case errors.Is(err, domain.ErrEmailTaken):
		log.Info().Str("email", admin.Email).Msg("admin already present")
	case err != nil:
		log.Fatal().Err(err).Msg("create admin")
	}

	trainService := trains.NewTrainService(
		repository.NewTransactor(pool, cfg.Booking.LockTimeout()),
		repository.NewTrainRepository(pool),
		repository.NewSeatRepository(pool),
		nil,
	)
	for _, in := range sampleTrains() {
		if _, err := trainService.CreateTrain(ctx, in); err != nil {
			log.Fatal().Err(err).Str("train", in.Name).Msg("create train")
		}
	}

	log.Info().Msg("database seeded")
}
