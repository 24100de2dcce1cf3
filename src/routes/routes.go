package routes

import (
	"github.com/gofiber/fiber/v2"

	"preview-engine/src/config"
	"preview-engine/src/handlers"
	"preview-engine/src/middleware"
)

func SetupRoutes(app *fiber.App, previewHandler *handlers.PreviewHandler, cfg config.ServerConfig) {
	serviceAvailability := middleware.DefaultServiceAvailability()
	app.Use(serviceAvailability.Middleware())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api/v1")

	if !cfg.RateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/pairs", previewHandler.NewPair)
	api.Put("/pairs/active", previewHandler.ChangeActivePair)
	api.Put("/pairs/leverage", previewHandler.ChangeLeverage)
	api.Put("/balance", previewHandler.UpdateBalance)

	api.Post("/preview", previewHandler.PreviewOrder)

	api.Post("/book/initialize", previewHandler.InitializeBook)
	api.Post("/book/update", previewHandler.UpdateBook)
	api.Get("/book/depth", previewHandler.GetDepth)
	api.Get("/book/grouped", previewHandler.GetGroupedDepth)
	api.Get("/book/best", previewHandler.GetBestQuote)

	app.Get("/health", previewHandler.HealthCheck)
	app.Get("/metrics", previewHandler.Metrics)
}
