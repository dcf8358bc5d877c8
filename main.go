package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/archive"
	"github.com/korefinance/kore/internal/pkg/cache"
	"github.com/korefinance/kore/internal/pkg/database"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/jobqueue"
	"github.com/korefinance/kore/internal/pkg/metrics"
	"github.com/korefinance/kore/internal/pkg/router"
	"github.com/korefinance/kore/internal/pkg/webhook"
)

func main() {
	app := NewApplication()

	metrics.StartServer()

	manager := jobqueue.GetManager()
	manager.SetHandlers(jobqueue.Handlers{
		ProcessWebhookEvent: func(ctx context.Context, eventID string) error {
			_, err := webhook.GetService().ProcessEvent(ctx, eventID)
			return err
		},
		ArchiveSweep: newArchiveSweep(),
	})
	if env.GetEnv("JOBQUEUE_ENABLED", "true") == "true" {
		manager.Start()
	}

	// Receipts go through the queue while it runs; otherwise the
	// webhook service processes inline before acknowledging.
	webhook.GetService().Dispatch = func(eventID string) bool {
		if !manager.IsRunning() {
			return false
		}
		_, err := manager.GetQueue().EnqueueJob(jobqueue.JobTypeWebhookProcess, jobqueue.WebhookProcessJobPayload{EventID: eventID}.ToMap())
		if err != nil {
			log.Errorf("dispatch webhook event %s: %v", eventID, err)
			return false
		}
		return true
	}

	// Graceful shutdown: drain HTTP first, then the queue workers.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorf("fiber shutdown: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	manager.Stop()
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "kore",
	})
	app.Use(recover.New(), logger.New())

	// fiber metrics dashboard; prometheus runs on its own port
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}

// newArchiveSweep builds the archive handler, or a stub that reports
// the feature as disabled when no archiver can be constructed.
func newArchiveSweep() func(ctx context.Context, olderThanDays, batchSize int) (int, error) {
	cfg, err := archive.LoadConfig()
	if err != nil {
		log.Errorf("archive config: %v", err)
		return archiveDisabled
	}
	if !cfg.IsEnabled() {
		return archiveDisabled
	}

	archiver, err := archive.NewArchiver(cfg, repository.GetGlobalRepositories())
	if err != nil {
		log.Errorf("archive setup: %v", err)
		return archiveDisabled
	}
	return archiver.Sweep
}

func archiveDisabled(context.Context, int, int) (int, error) {
	return 0, fmt.Errorf("archiving is not enabled")
}
