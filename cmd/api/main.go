package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alfredoptarigan/jobsync/internal/bootstrap"
	"alfredoptarigan/jobsync/internal/config"
	"alfredoptarigan/jobsync/internal/handlers"
	"alfredoptarigan/jobsync/internal/logger"
	"alfredoptarigan/jobsync/internal/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.Server.LogJSON, cfg.Server.LogDebug)
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("✅ Config loaded successfully")

	ctx := context.Background()

	container, err := bootstrap.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize services", zap.Error(err))
	}
	defer container.Close()

	// Initialize Handlers
	resumeHandler := handlers.NewResumeHandler(container.Matching, container.Storage, cfg.Storage.MaxFileSize)
	jobHandler := handlers.NewJobHandler(container.Matching)
	candidateHandler := handlers.NewCandidateHandler(container.Matching)

	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled {
		sessions, closeSessions, err := newSessionStore(ctx, cfg.Session)
		if err != nil {
			zl.Fatal("❌ Failed to initialize session store", zap.Error(err))
		}
		defer closeSessions()

		bot := whatsapp.NewBot(
			whatsapp.NewGraphClient(cfg.WhatsApp.GraphURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID, cfg.Storage.MaxFileSize),
			sessions,
			container.Matching,
			container.Storage,
			container.Chunker,
			zl,
		)
		webhookHandler = handlers.NewWebhookHandler(bot, cfg.WhatsApp.VerifyToken, zl)
		zl.Info("✅ WhatsApp bot initialized", zap.String("sessions", cfg.Session.Backend))
	}
	zl.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "JobSync AI API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := container.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/resumes/upload", resumeHandler.HandleUpload)
	api.Post("/resumes/analyze", resumeHandler.HandleAnalyze)
	api.Post("/resumes/:id/analyze", resumeHandler.HandleAnalyzeStored)
	api.Post("/jobs", jobHandler.HandleCreate)
	api.Get("/jobs", jobHandler.HandleList)
	api.Delete("/jobs/:id", jobHandler.HandleDelete)
	api.Get("/domains", jobHandler.HandleDomains)
	api.Post("/candidates/match", candidateHandler.HandleMatch)

	endpoints := []string{
		"POST /api/v1/resumes/upload",
		"POST /api/v1/resumes/analyze",
		"POST /api/v1/resumes/:id/analyze",
		"POST /api/v1/jobs",
		"GET /api/v1/jobs?domain=",
		"DELETE /api/v1/jobs/:id",
		"GET /api/v1/domains",
		"POST /api/v1/candidates/match",
	}

	if webhookHandler != nil {
		app.Get("/webhook", webhookHandler.HandleVerify)
		app.Post("/webhook", webhookHandler.HandleEvent)
		endpoints = append(endpoints, "GET /webhook", "POST /webhook")
	}

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "JobSync AI API",
			"version":   "1.0.0",
			"endpoints": endpoints,
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			zl.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Error("❌ Failed to start server", zap.Error(err))
	}
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (whatsapp.SessionStore, func(), error) {
	switch cfg.Backend {
	case "memory":
		return whatsapp.NewMemorySessionStore(cfg.TTL), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := whatsapp.NewRedisSessionStore(ctx, client, "", cfg.TTL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := handlers.StatusFor(err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
