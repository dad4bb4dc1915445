package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig   `json:"server"`
	Database   DatabaseConfig `json:"database"`
	Taxonomy   TaxonomyConfig `json:"taxonomy"`
	Schema     SchemaConfig   `json:"schema"`
	Health     HealthConfig   `json:"health"`
	Federation []PeerConfig   `json:"federation,omitempty"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// TaxonomyConfig points at the skill catalog directory.
type TaxonomyConfig struct {
	CatalogDir string `json:"catalog_dir"`
}

// SchemaConfig points at the AgentFacts JSON schema.
type SchemaConfig struct {
	Path string `json:"path"`
}

// HealthConfig tunes the background health monitor. Zero values fall back
// to the monitor's defaults.
type HealthConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	Threshold       int `json:"threshold"`
}

// PeerConfig describes one remote directory to federate with.
type PeerConfig struct {
	RegistryID string `json:"registry_id"`
	BaseURL    string `json:"base_url"`
	HealthAddr string `json:"health_addr,omitempty"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
