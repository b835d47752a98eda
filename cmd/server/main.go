package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flatcms/flatcms/internal/metrics"
	"github.com/flatcms/flatcms/pkg/flatcms"
	"github.com/flatcms/flatcms/pkg/flatcms/api"
	"github.com/flatcms/flatcms/pkg/flatcms/config"
)

// EnvConfig is the process environment read at startup.
type EnvConfig struct {
	Port               string `env:"PORT" env-default:"8080"`
	Environment        string `env:"ENVIRONMENT" env-default:"development"`
	StoreType          string `env:"STORE_TYPE" env-default:"fs"`
	ContentDir         string `env:"CONTENT_DIR" env-default:"./data/content"`
	SchemaDir          string `env:"SCHEMA_DIR" env-default:"./data/schemas"`
	VersionKeepCount   int    `env:"VERSION_KEEP_COUNT" env-default:"10"`
	EnableEventLogging bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
	EnableMetrics      bool   `env:"ENABLE_METRICS" env-default:"true"`
}

func main() {
	var env EnvConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		slog.Error("failed to read environment", "error", err)
		os.Exit(1)
	}

	setupLogging(env.Environment)

	cfg, err := config.Load(
		config.WithStoreType(env.StoreType),
		config.WithContentDir(env.ContentDir),
		config.WithSchemaDir(env.SchemaDir),
		config.WithVersionKeepCount(env.VersionKeepCount),
		func(c *config.ServerConfig) error {
			c.Port = env.Port
			c.Environment = env.Environment
			c.EnableEventLogging = env.EnableEventLogging
			return nil
		},
	)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	var extra []flatcms.Option
	if env.EnableMetrics {
		sinks := []flatcms.EventSink{metrics.New(registry)}
		if cfg.EnableEventLogging {
			sinks = append(sinks, flatcms.NewLoggingEventSink(nil))
		}
		extra = append(extra, flatcms.WithEventSink(flatcms.NewMultiEventSink(sinks...)))
	}

	svc, err := cfg.BuildService(extra...)
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if env.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/api/content", api.NewContentHandler(svc).Routes())

	addr := ":" + cfg.Port
	slog.Info("starting server",
		"addr", addr,
		"store", cfg.StoreType,
		"content_dir", cfg.ContentDir,
		"environment", cfg.Environment,
	)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs a JSON handler in production, text elsewhere.
func setupLogging(environment string) {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}
