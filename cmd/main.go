package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/wpsync/internal/api"
	"github.com/bilgisen/wpsync/internal/autosync"
	"github.com/bilgisen/wpsync/internal/cache"
	"github.com/bilgisen/wpsync/internal/config"
	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/importer"
	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/middleware"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.Env != "production",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to initialize store")
	}
	defer closeIfCloser(kv, "store")

	responseCache, err := newCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("Failed to initialize cache")
	}
	defer closeIfCloser(responseCache, "cache")

	settingsStore := settings.NewStore(kv, settings.Defaults(cfg.AutoSyncInterval))

	// The client stays nil when the connection is disabled; deps and
	// handlers then get an untyped nil interface.
	var client *wordpress.Client
	deps := content.Deps{KV: kv, Settings: settingsStore}
	if cfg.WordPress.Enabled {
		client = wordpress.NewClient(wordpress.Connection{
			BaseURL:     cfg.WordPress.APIURL,
			Username:    cfg.WordPress.Username,
			AppPassword: cfg.WordPress.AppPassword,
			Timeout:     cfg.WordPress.Timeout,
		})
		deps.Remote = client
	} else {
		log.Warn().Msg("WordPress connection disabled, running local only")
	}

	newsSeed, err := content.DefaultNewsSeed()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read news seed")
	}
	eventSeed, err := content.DefaultEventSeed()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read event seed")
	}

	news := content.NewNews(deps, newsSeed)
	events := content.NewEvents(deps, eventSeed)
	if err := news.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load news")
	}
	if err := events.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load events")
	}

	var (
		wp      api.WordPress
		imports *importer.Service
		fetcher autosync.Fetcher = autosync.FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return nil, content.ErrNoRemote
		})
	)
	if client != nil {
		wp = client
		imports = importer.New(importer.Options{
			Source:   client,
			News:     news,
			Events:   events,
			Settings: settingsStore,
			KV:       kv,
		})

		reader := wordpress.NewBreakerReader(client, wordpress.BreakerSettings{})
		fetcher = autosync.FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return reader.GetPosts(ctx, wordpress.PostQuery{
				PerPage:       100,
				OrderBy:       "modified",
				Order:         "desc",
				ModifiedAfter: since,
			})
		})
	}

	manager := autosync.New(autosync.Options{
		Settings: settingsStore,
		Fetcher:  fetcher,
	})
	manager.Subscribe(func(ctx context.Context, posts []models.Post) error {
		res, err := content.Distribute(ctx, news, events, posts)
		if err != nil {
			return err
		}
		if err := responseCache.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to clear cache")
		}
		log.Info().
			Int("imported", res.Imported()).
			Int("updated", res.Updated()).
			Msg("Applied auto-sync batch")
		return nil
	})
	manager.Start(ctx)

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		AppName:      "wpsync",
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	api.SetupRoutes(app, api.NewHandlers(api.Deps{
		Config:    cfg,
		News:      news,
		Events:    events,
		WordPress: wp,
		Importer:  imports,
		AutoSync:  manager,
		Cache:     responseCache,
	}))

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedis(cfg.RedisURL, cfg.RedisPrefix)
	}
	return cache.NewMemory(), nil
}

func closeIfCloser(v any, name string) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Get().Error().Err(err).Str("resource", name).Msg("Error closing resource")
	}
}
