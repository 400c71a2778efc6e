package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/telemetry"
	"catalog/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

func main() {
	rollback := flag.Int("rollback", 0, "revert the last N schema migrations and exit")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	setupLogging(cfg.Log)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, cfg.Environment)
	if err != nil {
		logrus.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logrus.WithError(err).Error("Error shutting down tracer provider")
		}
	}()

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close(db)

	if *rollback > 0 {
		if err := database.Rollback(db, *rollback); err != nil {
			logrus.Fatalf("Rollback failed: %v", err)
		}
		return
	}

	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	newRepo := repositories.NewGORMFactory(db, cfg.Database.QueryTimeout)

	if cfg.Seed.OnStartup {
		data, err := database.LoadSeedFile(cfg.Seed.File)
		if err != nil {
			logrus.Fatalf("Failed to load seed data: %v", err)
		}
		if _, err := database.SeedProducts(ctx, newRepo(), data); err != nil {
			logrus.Fatalf("Failed to seed database: %v", err)
		}
	}

	// --- Catalog events ---
	var events services.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		})
		if err != nil {
			logrus.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		events = mqClient

		err = mqClient.ConsumeProductEvents(func(msg amqp.Delivery) error {
			event, err := rabbitmq.DecodeEvent(msg)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"event_id":   event.ID,
				"event_type": event.Type,
				"product_id": event.ProductID,
			}).Info("Received catalog event")
			return nil
		})
		if err != nil {
			logrus.WithError(err).Error("Failed to start RabbitMQ consumer")
		}
	}

	productService := services.NewProductService(newRepo, events)
	app := newApp(db, productService)

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := app.Listen(cfg.Server.Port); err != nil {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	logrus.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logrus.WithError(err).Error("Error during Fiber shutdown")
	}
	logrus.Info("Server gracefully stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
