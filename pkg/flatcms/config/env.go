package config

import (
	"fmt"
	"os"
	"strconv"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
//	PORT                 - Server port (default: "8080")
//	ENVIRONMENT          - Runtime environment (default: "development")
//	STORE_TYPE           - "fs" or "memory" (default: "fs")
//	CONTENT_DIR          - Base directory for content documents
//	SCHEMA_DIR           - Directory holding schema documents
//	VERSION_KEEP_COUNT   - Snapshots retained per item (default: 10)
//	ENABLE_EVENT_LOGGING - Log lifecycle events (default: true)
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "STORE_TYPE"); ok && v != "" {
			c.StoreType = v
		}
		if v, ok := lookupEnv(prefix, "CONTENT_DIR"); ok && v != "" {
			c.ContentDir = v
		}
		if v, ok := lookupEnv(prefix, "SCHEMA_DIR"); ok && v != "" {
			c.SchemaDir = v
		}
		if v, ok := lookupEnv(prefix, "VERSION_KEEP_COUNT"); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid VERSION_KEEP_COUNT: %q", v)
			}
			c.VersionKeepCount = n
		}
		if v, ok := lookupEnv(prefix, "ENABLE_EVENT_LOGGING"); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid ENABLE_EVENT_LOGGING: %q", v)
			}
			c.EnableEventLogging = b
		}
		return nil
	}
}

func lookupEnv(prefix, key string) (string, bool) {
	if prefix != "" {
		key = prefix + "_" + key
	}
	return os.LookupEnv(key)
}
