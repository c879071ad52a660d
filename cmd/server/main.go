package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-course/internal/ai"
	"github.com/p-n-ai/pai-course/internal/course"
	"github.com/p-n-ai/pai-course/internal/httpapi"
	"github.com/p-n-ai/pai-course/internal/platform/cache"
	"github.com/p-n-ai/pai-course/internal/platform/config"
	"github.com/p-n-ai/pai-course/internal/platform/database"
	"github.com/p-n-ai/pai-course/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	router, err := newRouter(cfg.AI)
	if err != nil {
		return err
	}

	catalog := course.DefaultCatalog()
	if cfg.PromptsPath != "" {
		if catalog, err = course.LoadCatalog(cfg.PromptsPath); err != nil {
			return err
		}
		slog.Info("prompt catalog loaded", "path", cfg.PromptsPath, "version", catalog.Version)
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	h := httpapi.NewHandler(
		course.NewGenerator(router, course.WithGeneratorCatalog(catalog)),
		course.NewGrader(router, course.WithGraderCatalog(catalog)),
		store,
		httpapi.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		httpapi.WithMaxSubmissionBytes(cfg.Server.MaxSubmissionBytes),
		httpapi.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: h.NewMux(),
		// Uploads carry a base64 PDF and generation is a single long model
		// call, so both directions get generous limits.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the slog logger described by cfg. Unknown levels fall back
// to info; any format other than "text" is JSON.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newRouter registers every configured provider and binds the generation
// and grading tasks. Unrouted tasks go to the first provider registered, in
// the order google, openai, anthropic, deepseek, openrouter, ollama. Only
// google and anthropic accept the PDF upload.
func newRouter(cfg config.AIConfig) (*ai.Router, error) {
	router := ai.NewRouter()

	if cfg.Google.APIKey != "" {
		opts := []ai.GoogleOption{ai.WithGoogleModel(cfg.Google.Model)}
		if cfg.Google.BaseURL != "" {
			opts = append(opts, ai.WithGoogleBaseURL(cfg.Google.BaseURL))
		}
		router.Register("google", ai.NewGoogleProvider(cfg.Google.APIKey, opts...))
		slog.Info("AI provider registered", "provider", "google", "model", cfg.Google.Model)
	}
	if cfg.OpenAI.APIKey != "" {
		opts := []ai.OpenAIOption{ai.WithDefaultModel(cfg.OpenAI.Model)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, opts...))
		slog.Info("AI provider registered", "provider", "openai", "model", cfg.OpenAI.Model)
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			return nil, err
		}
		router.Register("anthropic", p)
		slog.Info("AI provider registered", "provider", "anthropic", "model", cfg.Anthropic.Model)
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey, ai.WithDefaultModel(cfg.DeepSeek.Model)))
		slog.Info("AI provider registered", "provider", "deepseek", "model", cfg.DeepSeek.Model)
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithDefaultModel(cfg.OpenRouter.Model)))
		slog.Info("AI provider registered", "provider", "openrouter", "model", cfg.OpenRouter.Model)
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithDefaultModel(cfg.Ollama.Model)))
		slog.Info("AI provider registered", "provider", "ollama", "url", cfg.Ollama.URL, "model", cfg.Ollama.Model)
	}

	for task, name := range map[ai.TaskType]string{
		ai.TaskGeneration: cfg.GenerationRoute,
		ai.TaskGrading:    cfg.GradingRoute,
	} {
		if name == "" {
			continue
		}
		if err := router.Route(task, name); err != nil {
			return nil, err
		}
	}
	return router, nil
}

// newStore opens the configured session store. The returned func releases
// its connections.
func newStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		c, err := cache.New(ctx, cfg.Cache.URL, cacheOptions(cfg.Cache)...)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(c.Client, cfg.Session.TTL), func() { _ = c.Close() }, nil

	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.Session.SQLitePath, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Session.TTL > 0 {
			go sweepExpired(ctx, store, cfg.Session.TTL/4)
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		db, err := database.New(ctx, database.Options{
			URL:          cfg.Database.URL,
			MaxConns:     cfg.Database.MaxConns,
			MinConns:     cfg.Database.MinConns,
			ConnLifetime: cfg.Database.ConnLifetime,
			ConnIdleTime: cfg.Database.ConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewPostgresStore(db.Pool, cfg.Session.TTL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		if cfg.Session.TTL > 0 {
			go sweepExpired(ctx, store, cfg.Session.TTL/4)
		}
		return store, db.Close, nil

	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		if cfg.Session.TTL > 0 {
			go sweepExpired(ctx, store, cfg.Session.TTL/4)
		}
		return store, func() {}, nil
	}
}

func cacheOptions(c config.CacheConfig) []cache.Option {
	var opts []cache.Option
	if c.DialTimeout > 0 && c.ReadWriteTimeout > 0 {
		opts = append(opts, cache.WithTimeouts(c.DialTimeout, c.ReadWriteTimeout))
	}
	if c.PoolSize > 0 {
		opts = append(opts, cache.WithPoolSize(c.PoolSize))
	}
	return opts
}

type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// sweepExpired removes expired sessions every interval until ctx is done.
func sweepExpired(ctx context.Context, store expirer, interval time.Duration) {
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				slog.Warn("expired session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}
