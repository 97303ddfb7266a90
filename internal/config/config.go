package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from ALPHALINK_* environment variables.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	GCPProjectID string `envconfig:"GCP_PROJECT"`
	GCPLocation  string `envconfig:"GCP_LOCATION" default:"us-central1"`
	ModelName    string `envconfig:"MODEL_NAME" default:"gemini-2.5-flash"`

	// StorageBackend is "memory" or "firestore".
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`

	// UseMockLLM swaps the generative backend for the deterministic
	// mock. On by default so a local memory-backed run needs no GCP
	// credentials; deployments set it to false.
	UseMockLLM bool `envconfig:"USE_MOCK_LLM" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("alphalink", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.StorageBackend != "memory" && cfg.StorageBackend != "firestore" {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "firestore" && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("ALPHALINK_GCP_PROJECT is required for the firestore backend")
	}
	if !cfg.UseMockLLM && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("ALPHALINK_GCP_PROJECT is required unless ALPHALINK_USE_MOCK_LLM=true")
	}

	return &cfg, nil
}
