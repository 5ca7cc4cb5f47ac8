// Package config provides configuration loading for the resolution services.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/wareline/resolve-core/internal/connector/warehouse"
)

// StoreConfig declares one warehouse store. Credentials may be supplied
// inline or through the WAREHOUSE_KEY_<NAME>/WAREHOUSE_SECRET_<NAME>
// environment pair; a store without any credentials is skipped at runtime,
// never an error.
type StoreConfig struct {
	Name     string `yaml:"name"`
	Prefix   string `yaml:"prefix,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Secret   string `yaml:"secret,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// TemporalConfig holds Temporal connection settings.
type TemporalConfig struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"taskQueue"`
}

// Config is the full service configuration.
type Config struct {
	// BaseURL of the warehouse API.
	BaseURL string `yaml:"baseUrl"`

	// DatabaseURL for the Postgres document store. Empty falls back to an
	// in-memory store (useful for ad-hoc CLI runs; nothing is cached
	// across processes).
	DatabaseURL string `yaml:"databaseUrl"`

	// PageSize for keyword searches.
	PageSize int `yaml:"pageSize"`

	// MetricsAddr is the listen address for the worker's /metrics endpoint.
	MetricsAddr string `yaml:"metricsAddr"`

	Stores   []StoreConfig  `yaml:"stores"`
	Temporal TemporalConfig `yaml:"temporal"`
}

// Load reads configuration from an optional YAML file and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BaseURL:     "https://storeapi.parcelninja.com/api/v1",
		PageSize:    warehouse.DefaultPageSize,
		MetricsAddr: ":9140",
		Temporal: TemporalConfig{
			Address:   "localhost:7233",
			Namespace: "resolve-dev",
			TaskQueue: "resolve-workers",
		},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.BaseURL = getEnv("RESOLVE_API_BASE_URL", cfg.BaseURL)
	cfg.DatabaseURL = getEnv("RESOLVE_DATABASE_URL", getEnv("DATABASE_URL", cfg.DatabaseURL))
	cfg.PageSize = getEnvInt("RESOLVE_PAGE_SIZE", cfg.PageSize)
	cfg.MetricsAddr = getEnv("RESOLVE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.Temporal.Address = getEnv("RESOLVE_TEMPORAL_ADDRESS", cfg.Temporal.Address)
	cfg.Temporal.Namespace = getEnv("RESOLVE_TEMPORAL_NAMESPACE", cfg.Temporal.Namespace)
	cfg.Temporal.TaskQueue = getEnv("RESOLVE_TEMPORAL_TASK_QUEUE", cfg.Temporal.TaskQueue)

	for i := range cfg.Stores {
		s := &cfg.Stores[i]
		envName := envCredSuffix(s.Name)
		if s.Key == "" {
			s.Key = os.Getenv("WAREHOUSE_KEY_" + envName)
		}
		if s.Secret == "" {
			s.Secret = os.Getenv("WAREHOUSE_SECRET_" + envName)
		}
	}

	return cfg, nil
}

// WarehouseStores converts the configured stores into client credentials.
// The prefix character defaults to the first letter of the store name.
func (c *Config) WarehouseStores() []warehouse.Store {
	stores := make([]warehouse.Store, 0, len(c.Stores))
	for _, s := range c.Stores {
		prefix := firstRune(s.Prefix)
		if prefix == 0 {
			prefix = firstRune(s.Name)
		}
		stores = append(stores, warehouse.Store{
			Name:     s.Name,
			Prefix:   prefix,
			Key:      s.Key,
			Secret:   s.Secret,
			Disabled: s.Disabled,
		})
	}
	return stores
}

// envCredSuffix normalizes a store name into the environment variable
// suffix: upper-cased, runs of non-alphanumerics collapsed to underscores
// ("Jeep Apparel" -> "JEEP_APPAREL").
func envCredSuffix(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
