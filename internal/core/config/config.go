package config

import (
	"time"

	"github.com/vietddude/tourdesk/internal/auth"
	"github.com/vietddude/tourdesk/internal/infra/backend/objectstore"
	"github.com/vietddude/tourdesk/internal/infra/backend/postgres"
	redisclient "github.com/vietddude/tourdesk/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	Redis       redisclient.Config `yaml:"redis"`
	ObjectStore objectstore.Config `yaml:"object_store"`
	Auth        auth.Config        `yaml:"auth"`
	Resilience  ResilienceConfig   `yaml:"resilience"`
	Maintenance MaintenanceConfig  `yaml:"maintenance"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ResilienceConfig tunes the executor. Zero values keep the built-in defaults.
type ResilienceConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	Timeout       time.Duration `yaml:"timeout"`        // per attempt
	UploadTimeout time.Duration `yaml:"upload_timeout"` // per upload attempt
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffCap    time.Duration `yaml:"backoff_cap"`
}

// MaintenanceConfig holds background worker settings.
type MaintenanceConfig struct {
	// PruneInterval is how often orphaned objects are retried. 0 disables the pruner.
	PruneInterval time.Duration `yaml:"prune_interval"`
}
