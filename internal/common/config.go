// Package common provides shared utilities for the research core: logging,
// configuration, startup banners, and version metadata.
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bobmcallan/lancet/internal/interfaces"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the research core.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Dispatcher  DispatcherConfig `toml:"dispatcher"`
	Budgets     BudgetsConfig  `toml:"budgets"`
	Status      StatusConfig   `toml:"statusservice"`
	Engines     EnginesConfig  `toml:"engines"`
	Clients     ClientsConfig  `toml:"clients"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	DataPath  string `toml:"data_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// DispatcherConfig configures the worker pool per job-kind slot.
type DispatcherConfig struct {
	Slots       map[string]int `toml:"slots"`
	MaxAttempts int            `toml:"max_attempts"`
}

// GetWorkersForSlot returns the configured worker count for a slot, defaulting to 1.
func (c DispatcherConfig) GetWorkersForSlot(slot string) int {
	if n, ok := c.Slots[slot]; ok && n > 0 {
		return n
	}
	return 1
}

// GetMaxAttempts returns the configured max job retry attempts, defaulting to 3.
func (c DispatcherConfig) GetMaxAttempts() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return 3
}

// BudgetsConfig holds default per-task resource limits.
type BudgetsConfig struct {
	DefaultBudgetPages int `toml:"default_budget_pages"`
	DefaultMaxSeconds  int `toml:"default_max_seconds"`
}

// StatusConfig configures the long-poll status service.
type StatusConfig struct {
	MaxWaitSeconds      int `toml:"max_wait_seconds"`
	IdleWarningSeconds  int `toml:"idle_warning_seconds"`
}

// GetMaxWait returns the configured long-poll ceiling, defaulting to 60s.
func (c StatusConfig) GetMaxWait() int {
	if c.MaxWaitSeconds > 0 {
		return c.MaxWaitSeconds
	}
	return 60
}

// GetIdleWarning returns the configured idle-warning threshold, defaulting to 300s.
func (c StatusConfig) GetIdleWarning() int {
	if c.IdleWarningSeconds > 0 {
		return c.IdleWarningSeconds
	}
	return 300
}

// EnginesConfig configures the search-engine circuit breakers and the
// endpoint each named engine is queried at.
type EnginesConfig struct {
	Names            []string                `toml:"names"`
	CooldownSeconds  int                     `toml:"cooldown_seconds"`
	FailureThreshold int                     `toml:"failure_threshold"`
	Endpoints        map[string]EngineConfig `toml:"endpoints"`
}

// EngineConfig configures a single search engine's endpoint.
type EngineConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// GetCooldown returns the configured circuit-breaker cooldown, defaulting to 30s.
func (c EnginesConfig) GetCooldown() int {
	if c.CooldownSeconds > 0 {
		return c.CooldownSeconds
	}
	return 30
}

// ClientsConfig holds third-party API client configuration.
type ClientsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
}

// GeminiConfig holds claim-extraction model configuration.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4242,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Username:  "root",
			Password:  "root",
			Namespace: "lancet",
			Database:  "research",
			DataPath:  "data/lancet",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console"},
			FilePath:   "./logs/lancet.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Dispatcher: DispatcherConfig{
			Slots:       map[string]int{"target_queue": 1, "compute_claims": 1},
			MaxAttempts: 3,
		},
		Budgets: BudgetsConfig{
			DefaultBudgetPages: 120,
			DefaultMaxSeconds:  1200,
		},
		Status: StatusConfig{
			MaxWaitSeconds:     60,
			IdleWarningSeconds: 300,
		},
		Engines: EnginesConfig{
			Names: []string{"google", "bing", "duckduckgo"},
			Endpoints: map[string]EngineConfig{
				"google":     {BaseURL: "https://serp.local/google"},
				"bing":       {BaseURL: "https://serp.local/bing"},
				"duckduckgo": {BaseURL: "https://serp.local/duckduckgo"},
			},
			CooldownSeconds:  30,
			FailureThreshold: 5,
		},
		Clients: ClientsConfig{
			Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies LANCET_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LANCET_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("LANCET_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("LANCET_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("LANCET_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if addr := os.Getenv("LANCET_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if path := os.Getenv("LANCET_DATA_PATH"); path != "" {
		config.Storage.DataPath = filepath.Join(path)
	}
	if v := os.Getenv("LANCET_GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Clients.Gemini.APIKey == "" {
		config.Clients.Gemini.APIKey = v
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from the environment or, failing that, the
// fallback; the store argument is not consulted.
func ResolveAPIKey(ctx context.Context, store interfaces.Store, name string, fallback string) (string, error) {
	envMapping := map[string][]string{
		"gemini_api_key": {"GEMINI_API_KEY", "LANCET_GEMINI_API_KEY"},
	}
	if envVarNames, ok := envMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if v := os.Getenv(envVarName); v != "" {
				return v, nil
			}
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("API key %q not found in environment or fallback config", name)
}
