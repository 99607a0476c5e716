package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the resolution core.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values.
// Secrets (credentials key, cluster URIs with embedded passwords) must only
// come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// Metadata store (where datasource records and containers live)
	Metadata MetadataConfig `yaml:"metadata"`

	// Shared multi-tenant clusters backing pooled-mode datasources
	Clusters ClusterConfig `yaml:"clusters"`

	// Connection attempt bounds applied to every client build
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Credential encryption key for stored datasource secrets.
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	// The process fails to start if this is not set.
	CredentialsKey string `yaml:"-" env:"GRIZZLY_CREDENTIALS_KEY"` // Secret - not in YAML
}

// MetadataConfig holds settings for the metadata document store.
type MetadataConfig struct {
	URI      string `yaml:"-" env:"METADATA_URI" env-default:"mongodb://localhost:27017"` // Secret - may embed credentials
	Database string `yaml:"database" env:"METADATA_DATABASE" env-default:"grizzly_core"`
}

// ClusterConfig holds the shared cluster endpoints used by pooled-mode
// datasources. A pooled record never carries its own endpoint; it gets a
// physical database inside one of these clusters.
type ClusterConfig struct {
	DocumentURI   string `yaml:"-" env:"POOLED_DOCUMENT_URI" env-default:""`   // Secret - may embed credentials
	RelationalDSN string `yaml:"-" env:"POOLED_RELATIONAL_DSN" env-default:""` // Secret - may embed credentials
	SearchURL     string `yaml:"-" env:"POOLED_SEARCH_URL" env-default:""`
}

// TimeoutConfig bounds both phases of a connection attempt so a dead
// backend cannot stall the connection cache.
type TimeoutConfig struct {
	ServerSelectionSeconds int `yaml:"server_selection_seconds" env:"TIMEOUT_SERVER_SELECTION_SECONDS" env-default:"5"`
	ConnectSeconds         int `yaml:"connect_seconds" env:"TIMEOUT_CONNECT_SECONDS" env-default:"60"`
}

// Load reads configuration from config.yaml (if present) and the
// environment, then validates required secrets.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if cfg.CredentialsKey == "" {
		return nil, fmt.Errorf("GRIZZLY_CREDENTIALS_KEY is required")
	}

	return cfg, nil
}
