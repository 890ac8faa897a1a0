package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/noticias/internal/api"
	"github.com/bilgisen/noticias/internal/auth"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/config"
	"github.com/bilgisen/noticias/internal/guard"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/middleware"
	"github.com/bilgisen/noticias/internal/news"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: !cfg.IsProduction(),
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("backend", cfg.BackendURL).Msg("Starting application...")

	// Cache store: Redis when REDIS_URL is set, in-process otherwise
	store, err := cache.Open(context.Background(), cfg.RedisURL, cfg.RedisPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache store")
	}
	defer func() {
		log.Info().Msg("Closing cache store...")
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache store")
		}
	}()

	client := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.HTTPTimeout))

	newsOpts := []news.Option{
		news.WithURL(cfg.NewsAPIURL),
		news.WithCountry(cfg.NewsCountry),
		news.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.NewsCacheTTL > 0 {
		newsOpts = append(newsOpts, news.WithCache(store, cfg.NewsCacheTTL))
	}
	if cfg.NewsAPIKey == "" {
		log.Warn().Msg("NEWS_API_KEY is not set; /noticias will answer 503")
	}

	g := guard.New(auth.NewService(client))
	if cfg.StatusCacheTTL > 0 {
		g = g.WithMemo(store, cfg.StatusCacheTTL, nil)
	}

	handlers := api.NewHandlers(api.Deps{
		Config:  cfg,
		Backend: client,
		Store:   store,
		News:    news.NewClient(cfg.NewsAPIKey, newsOpts...),
		Guard:   g,
	})

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.NewErrorHandler(api.Classify),
	})

	// Global middleware
	app.Use(recover.New()) // Recover from panics
	app.Use(middleware.RequestLogger())

	api.SetupRoutes(app, handlers)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown the server
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
