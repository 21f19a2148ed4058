package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"trainerbook/internal/availability"
	"trainerbook/internal/booking"
	"trainerbook/internal/calendar"
	"trainerbook/internal/config"
	"trainerbook/internal/db"
	"trainerbook/internal/email"
	"trainerbook/internal/events"
	"trainerbook/internal/ledger"
	"trainerbook/internal/logger"
	"trainerbook/internal/server"
	"trainerbook/internal/user"
)

// @title Trainerbook API
// @version 1.0
// @description Booking engine for a personal trainer: slot grid, session packages and bookings.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	defer logger.Sync()
	logger.Info("Starting trainerbook")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	emailService := email.New(rdb, email.NewSMTPTransport(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Pass:     cfg.SMTPPass,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}))
	defer emailService.Close()
	go emailService.Start(ctx)
	logger.Info("Email worker started", "redis", cfg.RedisAddr)

	var mirror calendar.Mirror = calendar.Noop{}
	if cfg.CalendarEnabled() {
		g, err := calendar.NewGoogle(ctx, cfg.GoogleCalendarID, cfg.GoogleCredentialsFile, cfg.Location)
		if err != nil {
			logger.Fatalf("Failed to set up Google Calendar: %v", err)
		}
		mirror = g
		logger.Info("Calendar mirroring enabled", "calendar_id", cfg.GoogleCalendarID)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		publisher = p
		logger.Info("Publishing domain events", "exchange", cfg.AMQPExchange)
	}
	defer publisher.Close()

	users := user.NewRepository(database)
	packages := ledger.NewRepository(database)
	availabilityService := availability.NewService(booking.NewRepository(database), packages, mirror, cfg.Location)
	bookingService := booking.NewService(
		booking.NewStore(database),
		users,
		mirror,
		emailService,
		publisher,
		cfg.Location,
		cfg.SideEffectTimeout,
	)

	srv := server.New(cfg, server.Deps{
		Users:        users,
		Packages:     packages,
		Availability: availabilityService,
		Bookings:     bookingService,
		Stats:        booking.NewStatsRepository(database),
		Notifier:     emailService,
		Checks: map[string]server.HealthCheck{
			"postgres": database.PingContext,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()

	logger.Info("Server stopped")
}
