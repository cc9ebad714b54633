package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/tourdesk/internal/auth"
	"github.com/vietddude/tourdesk/internal/infra/backend/objectstore"
	"github.com/vietddude/tourdesk/internal/infra/resilience"
	"github.com/vietddude/tourdesk/internal/upload"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}

	if cfg.ObjectStore.Driver == "" {
		cfg.ObjectStore.Driver = objectstore.DriverMemory
	}
	if cfg.ObjectStore.BucketImages == "" {
		cfg.ObjectStore.BucketImages = "trip-images"
	}
	if cfg.ObjectStore.BucketDocuments == "" {
		cfg.ObjectStore.BucketDocuments = "trip-documents"
	}

	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = auth.DefaultSessionTTL
	}
	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = ".tourdesk-token"
	}

	r := &cfg.Resilience
	if r.MaxAttempts == 0 {
		r.MaxAttempts = resilience.DefaultMaxAttempts
	}
	if r.Timeout == 0 {
		r.Timeout = resilience.DefaultTimeout
	}
	if r.UploadTimeout == 0 {
		r.UploadTimeout = upload.DefaultTimeout
	}
	if r.BackoffBase == 0 {
		r.BackoffBase = resilience.InteractiveBackoff.Base
	}
	if r.BackoffCap == 0 {
		r.BackoffCap = resilience.InteractiveBackoff.Cap
	}
}

// Validate checks values that cannot be defaulted.
func (c *AppConfig) Validate() error {
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be positive, got %d", c.Resilience.MaxAttempts)
	}
	if c.Resilience.Timeout < 0 || c.Resilience.UploadTimeout < 0 {
		return fmt.Errorf("resilience timeouts must be positive")
	}
	if c.Resilience.BackoffCap < c.Resilience.BackoffBase {
		return fmt.Errorf("resilience.backoff_cap (%s) is below backoff_base (%s)",
			c.Resilience.BackoffCap, c.Resilience.BackoffBase)
	}
	if c.Maintenance.PruneInterval < 0 {
		return fmt.Errorf("maintenance.prune_interval must not be negative")
	}
	if err := c.ObjectStore.Validate(); err != nil {
		return fmt.Errorf("object_store: %w", err)
	}
	return nil
}

// Backoff returns the configured backoff profile.
func (c *AppConfig) Backoff() resilience.Backoff {
	return resilience.Backoff{Base: c.Resilience.BackoffBase, Cap: c.Resilience.BackoffCap}
}

// UploadRules returns the upload rules for the configured buckets.
func (c *AppConfig) UploadRules() map[upload.Kind]upload.Rule {
	rules := upload.DefaultRules(c.ObjectStore.BucketImages, c.ObjectStore.BucketDocuments)
	for kind, rule := range rules {
		rule.Timeout = c.Resilience.UploadTimeout
		rule.MaxAttempts = c.Resilience.MaxAttempts
		rules[kind] = rule
	}
	return rules
}
