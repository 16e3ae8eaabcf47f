package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"langtutor/internal/cache"
	"langtutor/internal/config"
	httphandler "langtutor/internal/http"
	"langtutor/internal/ingest"
	"langtutor/internal/middleware"
	"langtutor/internal/repo"
	"langtutor/internal/services/dictionary"
	"langtutor/internal/services/flashcard"
	"langtutor/internal/services/llm"
	"langtutor/internal/services/news"
)

const memoryCacheSize = 256

func main() {
	// Parse command line flags
	var (
		importFile = flag.String("import", "", "Import vocabulary from a .json or .xlsx file and exit")
		port       = flag.String("port", "", "Port to run the server on (overrides PORT)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg.Log)
	if *port != "" {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the vocabulary store
	vocab, err := repo.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open vocabulary store")
	}
	defer vocab.Close()

	loader := ingest.NewLoader(vocab)

	// If import flag is set, load the file and exit
	if *importFile != "" {
		res, err := loader.LoadFromFile(ctx, *importFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *importFile).Msg("Import failed")
		}
		log.Info().
			Int("total", res.Total).
			Int("created", res.Created).
			Int("skipped", res.Skipped).
			Strs("errors", res.Errors).
			Msg("Import finished")
		return
	}

	// Initialize the headline cache and rate limiter, shared through Redis
	// when configured.
	var (
		store   cache.Store
		limiter middleware.Limiter
		ready   = []httphandler.ReadyCheck{vocab.Ping}
	)
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		store = redisCache
		limiter = middleware.NewRedisRateLimiter(redisCache, cfg.Server.RateLimit)
		ready = append(ready, redisCache.Ping)
	} else {
		memoryCache, err := cache.NewMemoryCache(memoryCacheSize)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create memory cache")
		}
		store = memoryCache
		limiter = middleware.NewSimpleRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimit)
	}
	defer store.Close()

	registry := newRegistry(ctx, cfg)

	newsService := news.NewNewsService(
		news.NewFeed(cfg.News.APIKey, cfg.News.Endpoint, nil),
		news.NewNewsCache(store, cfg.News.TTL),
	)

	handler := httphandler.NewHandler(
		registry,
		newsService,
		flashcard.NewService(vocab),
		dictionary.NewService(vocab),
		loader,
	)

	// Initialize HTTP router
	router := httphandler.NewRouter(httphandler.RouterOptions{
		AllowedOrigins: splitOrigins(cfg.Server.AllowedOrigins),
		Limiter:        limiter,
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	router.RegisterHealthRoutes()
	router.RegisterAPIRoutes(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Server.Port).
			Strs("providers", registry.Names()).
			Str("default_provider", registry.Default()).
			Str("database", cfg.Database.Driver).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped")
}

// newRegistry registers every backend. Hosted ones without a key are still
// registered and report the missing key when used.
func newRegistry(ctx context.Context, cfg *config.Config) *llm.Registry {
	registry := llm.NewRegistry(cfg.LLM.DefaultProvider)
	registry.Register(llm.NewOllamaClient(cfg.Ollama.BaseURL, nil), cfg.Ollama.Model)
	registry.Register(llm.NewOpenAIClient(cfg.OpenAI.APIKey), cfg.OpenAI.Model)
	registry.Register(llm.NewAnthropicClient(cfg.Anthropic.APIKey), cfg.Anthropic.Model)
	registry.Register(llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, ""), cfg.Gemini.Model)
	return registry
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
