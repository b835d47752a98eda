// Package config assembles a flatcms service from declarative server
// configuration, mirroring how the executables wire the library.
package config

import (
	"errors"
	"fmt"

	"github.com/flatcms/flatcms/pkg/flatcms"
	"github.com/flatcms/flatcms/pkg/flatcms/schema"
	fsstore "github.com/flatcms/flatcms/pkg/flatcms/store/fs"
	memorystore "github.com/flatcms/flatcms/pkg/flatcms/store/memory"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		StoreType:          "fs",
		ContentDir:         "./data/content",
		SchemaDir:          "./data/schemas",
		VersionKeepCount:   fsstore.DefaultKeepVersions,
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the flatcms service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Store configuration
	StoreType        string // "fs", "memory"
	ContentDir       string // base directory for content documents (fs store)
	SchemaDir        string // directory holding schema documents
	VersionKeepCount int    // snapshots retained per item

	// Server options
	EnableEventLogging bool
}

// WithStoreType sets the store implementation ("fs" or "memory").
func WithStoreType(storeType string) Option {
	return func(c *ServerConfig) error {
		c.StoreType = storeType
		return nil
	}
}

// WithContentDir sets the content documents directory for the fs store.
func WithContentDir(dir string) Option {
	return func(c *ServerConfig) error {
		c.ContentDir = dir
		return nil
	}
}

// WithSchemaDir sets the schema documents directory.
func WithSchemaDir(dir string) Option {
	return func(c *ServerConfig) error {
		c.SchemaDir = dir
		return nil
	}
}

// WithVersionKeepCount sets the per-item snapshot retention count.
func WithVersionKeepCount(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("version keep count must be positive, got %d", n)
		}
		c.VersionKeepCount = n
		return nil
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.StoreType != "fs" && c.StoreType != "memory" {
		return errors.New("store_type must be 'fs' or 'memory'")
	}
	if c.StoreType == "fs" && c.ContentDir == "" {
		return errors.New("content_dir is required when using the fs store")
	}
	if c.VersionKeepCount <= 0 {
		return errors.New("version_keep_count must be positive")
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
// Extra options are applied after the configured ones, so callers can
// attach sinks or override the logger.
func (c *ServerConfig) BuildService(extra ...flatcms.Option) (flatcms.Service, error) {
	var options []flatcms.Option

	switch c.StoreType {
	case "memory":
		st := memorystore.NewWithKeepCount(c.VersionKeepCount)
		options = append(options, flatcms.WithStore(st), flatcms.WithVersionStore(st))
	case "fs":
		st, err := fsstore.New(fsstore.Config{
			BaseDir:      c.ContentDir,
			KeepVersions: c.VersionKeepCount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fs store: %w", err)
		}
		options = append(options, flatcms.WithStore(st), flatcms.WithVersionStore(st))
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.StoreType)
	}

	if c.SchemaDir != "" {
		options = append(options, flatcms.WithSchemaProvider(schema.NewProvider(c.SchemaDir)))
	}
	if c.EnableEventLogging {
		options = append(options, flatcms.WithEventSink(flatcms.NewLoggingEventSink(nil)))
	}

	options = append(options, extra...)
	return flatcms.New(options...)
}
