// Package config provides configuration loading and structs for the matome pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Storage  StorageConfig  `yaml:"storage"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// StorageConfig holds blob storage settings.
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
}

// OllamaConfig holds model service settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// PipelineConfig holds stage batch sizes and text preparation settings.
type PipelineConfig struct {
	BatchLimit         int           `yaml:"batch_limit"`
	Interval           time.Duration `yaml:"interval"`
	PromptBudget       int           `yaml:"prompt_budget"`
	RelevanceThreshold float64       `yaml:"relevance_threshold"`
	Topics             []string      `yaml:"topics"`
}

// FetchConfig holds arXiv ingestion settings.
type FetchConfig struct {
	ListingURL string `yaml:"listing_url"`
	Limit      int    `yaml:"limit"`
}

// Load reads and parses the config file at path, applies defaults, then
// environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadOrDefault behaves like Load but tolerates a missing file, so the CLI
// can run on defaults plus environment variables alone.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = &Config{}
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override endpoints and
// credentials without editing the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB_NAME"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("MONGO_COLLECTION_NAME"); v != "" {
		cfg.Mongo.Collection = v
	}
	if v := os.Getenv("GCS_BUCKET_NAME"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("RELEVANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.RelevanceThreshold = f
		}
	}
}
