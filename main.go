package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/middleware"
	"github.com/johnolven/swarm/routes"
	"github.com/johnolven/swarm/worker"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Error tracking is opt-in per environment
	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	webhookLogger := logrus.New()
	webhookLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Start the webhook delivery worker
	webhookWorker := worker.NewWebhookWorker(
		config.DB,
		webhookLogger,
		config.AppConfig.WebhookRetryMaxAttempts,
		time.Duration(config.AppConfig.WebhookRetryDelayMS)*time.Millisecond,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go webhookWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, webhookLogger)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	log.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
