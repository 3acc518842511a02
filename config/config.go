// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "citare.yaml"
	// UserFile is the config file looked up under the XDG config home.
	UserFile = "citare/config.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CITARE_"
)

// StorageConfig locates the embedding store.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// CatalogConfig locates the rule and report catalog. An empty path puts the
// catalog next to the embedding store.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// AIConfig configures the embedding provider.
type AIConfig struct {
	Provider   string        `yaml:"provider"`
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	Disabled   bool          `yaml:"disabled"`
}

// JobsConfig tunes the job manager and scheduler.
type JobsConfig struct {
	MaxJobsPerRun    int           `yaml:"max_jobs_per_run"`
	Pacing           time.Duration `yaml:"pacing"`
	BatchSize        int           `yaml:"batch_size"`
	RetryCount       int           `yaml:"retry_count"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	ChunkSize        int           `yaml:"chunk_size"`
	Retention        time.Duration `yaml:"retention"`
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultK         int     `yaml:"default_k"`
	DefaultThreshold float32 `yaml:"default_threshold"`
}

// HydrateConfig tunes source hydration.
type HydrateConfig struct {
	Workers       int    `yaml:"workers"`
	SourceBaseURL string `yaml:"source_base_url"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
	AI      AIConfig      `yaml:"ai"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Search  SearchConfig  `yaml:"search"`
	Hydrate HydrateConfig `yaml:"hydrate"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Resolve loads .env if present, then the config file, then applies
// CITARE_* environment overrides. An explicit path must exist. Otherwise
// ./citare.yaml is tried, then the XDG user config, then the defaults.
// The returned path is empty when no file was read.
func Resolve(explicit string) (*Config, string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	path, err := locate(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	if path != "" {
		if cfg, err = Load(path); err != nil {
			return nil, "", err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}
	if path, err := xdg.SearchConfigFile(UserFile); err == nil {
		return path, nil
	}
	return "", nil
}

// UserPath returns the XDG config file path, creating its directory.
func UserPath() (string, error) {
	return xdg.ConfigFile(UserFile)
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the components cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Storage.DBPath == "":
		return errors.New("config: storage.db_path is required")
	case c.AI.Dimensions < 0:
		return errors.New("config: ai.dimensions must be positive")
	case c.Jobs.MaxJobsPerRun < 1:
		return errors.New("config: jobs.max_jobs_per_run must be positive")
	case c.Jobs.BatchSize < 1:
		return errors.New("config: jobs.batch_size must be positive")
	case c.Jobs.RetryCount < 0:
		return errors.New("config: jobs.retry_count must not be negative")
	case c.Jobs.Pacing < 0, c.Jobs.RetryBaseDelay < 0:
		return errors.New("config: jobs durations must not be negative")
	case c.Search.DefaultK < 1:
		return errors.New("config: search.default_k must be positive")
	case c.Search.DefaultThreshold < -1 || c.Search.DefaultThreshold > 1:
		return errors.New("config: search.default_threshold must be within [-1, 1]")
	case c.Hydrate.Workers < 1:
		return errors.New("config: hydrate.workers must be positive")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(xdg.DataHome, "citare", "db")
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "compat"
	}
	if cfg.AI.Host == "" && cfg.AI.Provider == "compat" {
		cfg.AI.Host = "http://localhost:11434/v1"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "text-embedding-3-small"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.AI.Dimensions == 0 {
		cfg.AI.Dimensions = 1536
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.Jobs.MaxJobsPerRun == 0 {
		cfg.Jobs.MaxJobsPerRun = 5
	}
	if cfg.Jobs.Pacing == 0 {
		cfg.Jobs.Pacing = 200 * time.Millisecond
	}
	if cfg.Jobs.BatchSize == 0 {
		cfg.Jobs.BatchSize = 10
	}
	if cfg.Jobs.RetryBaseDelay == 0 {
		cfg.Jobs.RetryBaseDelay = 30 * time.Second
	}
	if cfg.Jobs.ChunkSize == 0 {
		cfg.Jobs.ChunkSize = 500
	}
	if cfg.Jobs.Retention == 0 {
		cfg.Jobs.Retention = 7 * 24 * time.Hour
	}
	if cfg.Jobs.ScheduleInterval == 0 {
		cfg.Jobs.ScheduleInterval = time.Minute
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 5
	}
	if cfg.Search.DefaultThreshold == 0 {
		cfg.Search.DefaultThreshold = 0.75
	}
	if cfg.Hydrate.Workers == 0 {
		cfg.Hydrate.Workers = 4
	}
	if cfg.Hydrate.SourceBaseURL == "" {
		cfg.Hydrate.SourceBaseURL = "https://regulations.example"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8088"
	}
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DB_PATH":         &cfg.Storage.DBPath,
		"CATALOG_PATH":    &cfg.Catalog.Path,
		"AI_PROVIDER":     &cfg.AI.Provider,
		"AI_HOST":         &cfg.AI.Host,
		"AI_MODEL":        &cfg.AI.Model,
		"AI_API_KEY_ENV":  &cfg.AI.APIKeyEnv,
		"SOURCE_BASE_URL": &cfg.Hydrate.SourceBaseURL,
		"HTTP_ADDR":       &cfg.HTTP.Addr,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "AI_DIMENSIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sAI_DIMENSIONS: %w", EnvPrefix, err)
		}
		cfg.AI.Dimensions = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "AI_DISABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sAI_DISABLED: %w", EnvPrefix, err)
		}
		cfg.AI.Disabled = b
	}
	return nil
}
