package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingURL indicates the Jenkins server URL was not configured.
var ErrMissingURL = errors.New("JENKINS_URL is required; set it to your Jenkins server URL")

// Config represents the gateway configuration
type Config struct {
	Jenkins JenkinsConfig `yaml:"jenkins"`
	Store   StoreConfig   `yaml:"store"`
	Trigger TriggerConfig `yaml:"trigger"`
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// JenkinsConfig contains Jenkins connection settings
type JenkinsConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	APIToken string        `yaml:"api_token"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig locates the durable trigger ledger file
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TriggerConfig bounds the queue-resolution polling loop
type TriggerConfig struct {
	QueueAttempts int           `yaml:"queue_attempts"`
	QueueDelay    time.Duration `yaml:"queue_delay"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig contains authentication settings for the HTTP surface.
// With no keys configured the surface is open, matching the stdio
// surface's posture.
type AuthConfig struct {
	APIKeys []APIKey `yaml:"api_keys"`
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Load builds the configuration from an optional YAML file plus
// environment variables. Environment variables win over file values.
// An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand environment variables in the config
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Jenkins.URL == "" {
		return nil, ErrMissingURL
	}

	return &cfg, nil
}

// applyEnv overrides file values with the deployment environment
// variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JENKINS_URL"); v != "" {
		cfg.Jenkins.URL = v
	}
	if v := os.Getenv("JENKINS_USERNAME"); v != "" {
		cfg.Jenkins.Username = v
	}
	if v := os.Getenv("JENKINS_API_TOKEN"); v != "" {
		cfg.Jenkins.APIToken = v
	}
	if v := os.Getenv("JENKINS_GATEWAY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Jenkins.Timeout == 0 {
		cfg.Jenkins.Timeout = 30 * time.Second
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
	if cfg.Trigger.QueueAttempts == 0 {
		cfg.Trigger.QueueAttempts = 10
	}
	if cfg.Trigger.QueueDelay == 0 {
		cfg.Trigger.QueueDelay = time.Second
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// defaultStorePath returns the ledger location used when nothing is
// configured: ~/.jenkins-gateway/triggered_jobs.json, falling back to
// the working directory when the home directory is unknown.
func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".jenkins-gateway", "triggered_jobs.json")
	}
	return filepath.Join(home, ".jenkins-gateway", "triggered_jobs.json")
}
