package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/korefinance/kore/app/controllers"
	"github.com/korefinance/kore/internal/pkg/cache"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiterConfig()))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Provider deliveries authenticate by signature, not owner header.
	v1.Post("/webhooks/paywithaccount", controllers.HandleProviderWebhook)

	owned := v1.Group("", middleware.OwnerRefMiddleware())

	goals := owned.Group("/goals")
	goals.Post("/", controllers.HandleCreateGoal)
	goals.Get("/", controllers.HandleListGoals)
	goals.Get("/:id", controllers.HandleGetGoal)
	goals.Patch("/:id", controllers.HandleUpdateGoal)
	goals.Post("/:id/pause", controllers.HandlePauseGoal)
	goals.Post("/:id/resume", controllers.HandleResumeGoal)
	goals.Get("/:id/summary", controllers.HandleGoalSummary)

	cols := owned.Group("/collections")
	cols.Post("/", controllers.HandleCreateCollection)
	cols.Get("/", controllers.HandleListCollections)
	cols.Get("/:id", controllers.HandleGetCollection)
	cols.Get("/:id/status", controllers.HandleCollectionStatus)
	cols.Post("/:id/validate", controllers.HandleValidateCollection)
	cols.Get("/:id/query-status", controllers.HandleQueryCollectionStatus)

	owned.Get("/transactions", controllers.HandleListTransactions)

	admin := v1.Group("/admin", middleware.AdminAuthMiddleware())
	admin.Get("/webhook-events", controllers.HandleAdminListWebhookEvents)
	admin.Get("/webhook-events/:id", controllers.HandleAdminGetWebhookEvent)
	admin.Post("/webhook-events/:id/requeue", controllers.HandleAdminRequeueWebhookEvent)
	admin.Post("/collections/:id/override", controllers.HandleAdminOverrideCollection)
	admin.Get("/queue/stats", controllers.HandleAdminQueueStats)
}

// limiterConfig backs the rate limiter with the shared Redis instance
// so limits hold across replicas. Without a reachable cache the limiter
// falls back to its in-memory store.
func limiterConfig() limiter.Config {
	cfg := limiter.Config{
		Max:        rateLimitMax(),
		Expiration: time.Minute,
	}

	cacheClient := cache.GetClient()
	if cacheClient == nil {
		return cfg
	}

	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	addr := cacheClient.Options().Addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	if p := cacheClient.Options().Password; p != "" {
		password = p
	}

	// Database 1 keeps limiter keys out of the cache keyspace.
	cfg.Storage = redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
	return cfg
}

func rateLimitMax() int {
	if v, err := strconv.Atoi(env.GetEnv("RATE_LIMIT_MAX", "120")); err == nil && v > 0 {
		return v
	}
	return 120
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
