package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	DBPath              string
	LogLevel            string
	LogFormat           string
	StoreDriver         string
	MongoURI            string
	MongoDatabase       string
	CatalogPath         string
	AMQPURL             string
	AMQPExchange        string
	DefaultHearts       int
	MaxHearts           int
	HeartRefillInterval time.Duration
	WriterShards        int
	WriterQueueSize     int
	ReconcileOnLoad     bool
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the binary still starts when .env is absent.
	_ = godotenv.Load()

	return Config{
		DBPath:              envOr("DB_PATH", "file:learnmap.db"),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		LogFormat:           envOr("LOG_FORMAT", "text"),
		StoreDriver:         strings.ToLower(envOr("STORE_DRIVER", StoreSQLite)),
		MongoURI:            envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       envOr("MONGO_DATABASE", "learnmap"),
		CatalogPath:         envOr("CATALOG_PATH", ""),
		AMQPURL:             envOr("AMQP_URL", ""),
		AMQPExchange:        envOr("AMQP_EXCHANGE", "learnmap.events"),
		DefaultHearts:       envIntOr("DEFAULT_HEARTS", 5),
		MaxHearts:           envIntOr("MAX_HEARTS", 5),
		HeartRefillInterval: envDurationOr("HEART_REFILL_INTERVAL", 30*time.Minute),
		WriterShards:        envIntOr("WRITER_SHARDS", 4),
		WriterQueueSize:     envIntOr("WRITER_QUEUE_SIZE", 64),
		ReconcileOnLoad:     envBoolOr("RECONCILE_ON_LOAD", true),
	}
}

// Validate reports the first configuration value that cannot work.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when STORE_DRIVER=%s", StoreSQLite)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI cannot be empty when STORE_DRIVER=%s", StoreMongo)
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE cannot be empty when STORE_DRIVER=%s", StoreMongo)
		}
		if c.CatalogPath == "" {
			return fmt.Errorf("CATALOG_PATH is required when STORE_DRIVER=%s", StoreMongo)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreSQLite, StoreMongo, c.StoreDriver)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR, got %q", c.LogLevel)
	}
	if c.DefaultHearts < 0 {
		return fmt.Errorf("DEFAULT_HEARTS must be >= 0, got %d", c.DefaultHearts)
	}
	if c.MaxHearts < c.DefaultHearts {
		return fmt.Errorf("MAX_HEARTS (%d) must be >= DEFAULT_HEARTS (%d)", c.MaxHearts, c.DefaultHearts)
	}
	if c.HeartRefillInterval <= 0 {
		return fmt.Errorf("HEART_REFILL_INTERVAL must be positive, got %s", c.HeartRefillInterval)
	}
	if c.WriterShards < 1 {
		return fmt.Errorf("WRITER_SHARDS must be >= 1, got %d", c.WriterShards)
	}
	if c.WriterQueueSize < 1 {
		return fmt.Errorf("WRITER_QUEUE_SIZE must be >= 1, got %d", c.WriterQueueSize)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}
