package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"preview-engine/src/config"
	"preview-engine/src/feed"
	"preview-engine/src/handlers"
	"preview-engine/src/logger"
	"preview-engine/src/routes"
	"preview-engine/src/session"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log := logger.GetLogger()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("Initializing Futures Order Preview Engine")

	sess := session.NewSession(cfg.Feed.Symbol)
	previewHandler := handlers.NewPreviewHandler(sess)

	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	if cfg.Feed.Enabled {
		snapshot := feed.NewSnapshotClient(cfg.Feed.RestBaseURL, cfg.Feed.Symbol)
		if err := snapshot.Refresh(feedCtx, sess.Ladder()); err != nil {
			// the stream delivers its own snapshot after connecting
			log.Warn().Err(err).Msg("Initial book snapshot failed, relying on stream")
		}

		stream := feed.NewBookStream(cfg.Feed.WsURL, cfg.Feed.Symbol, sess.Ladder())
		go func() {
			if err := stream.Run(feedCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Book stream stopped")
			}
		}()
		defer stream.Close()

		log.Info().
			Str("symbol", cfg.Feed.Symbol).
			Str("ws_url", cfg.Feed.WsURL).
			Msg("Market data feed started")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, previewHandler, cfg.Server)

	port := fmt.Sprintf(":%d", cfg.Server.Port)

	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			// edge case: ignore shutdown errors, only report real errors
			if err.Error() != "server is shutting down" {
				serverError <- err
			}
		}
	}()

	select {
	case err := <-serverError:
		log.Fatal().
			Err(err).
			Str("port", port).
			Str("hint", "Port may be already in use. Try: PREVIEW_PORT=3000 go run main.go").
			Msg("Server failed to start")
	default:
		log.Info().
			Str("port", port).
			Msg("Futures Order Preview Engine started")

		log.Info().
			Strs("endpoints", []string{
				"POST /api/v1/pairs",
				"PUT  /api/v1/pairs/active",
				"PUT  /api/v1/pairs/leverage",
				"PUT  /api/v1/balance",
				"POST /api/v1/preview",
				"POST /api/v1/book/initialize",
				"POST /api/v1/book/update",
				"GET  /api/v1/book/depth",
				"GET  /api/v1/book/grouped",
				"GET  /api/v1/book/best",
				"GET  /health",
				"GET  /metrics",
			}).
			Msg("API endpoints registered")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info().Msg("Received shutdown signal, shutting down...")

	stopFeed()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().
				Err(err).
				Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}

	logger.Close()
}
