// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: debug, release or test
	} `yaml:"server"`

	API struct {
		BasePath    string `yaml:"base_path"`
		SwaggerHost string `yaml:"swagger_host"`
	} `yaml:"api"`

	Log struct {
		Env   string `yaml:"env"`   // dev or prod
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	// Auth guards the API itself with static bearer keys.
	Auth struct {
		Enabled bool     `yaml:"enabled"`
		Tokens  []string `yaml:"tokens"`
	} `yaml:"auth"`

	Storage struct {
		Backend  string `yaml:"backend"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
			Migrate  bool   `yaml:"migrate"` // run migrations on serve
		} `yaml:"postgres"`
		Redis struct {
			Host      string `yaml:"host"`
			Port      int    `yaml:"port"`
			DB        int    `yaml:"db"`
			Password  string `yaml:"password"`
			KeyPrefix string `yaml:"key_prefix"`
		} `yaml:"redis"`
	} `yaml:"storage"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.setDefaults()

	switch config.Storage.Backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.API.BasePath == "" {
		c.API.BasePath = "/"
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = 5432
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = "disable"
	}
	if c.Storage.Redis.Port == 0 {
		c.Storage.Redis.Port = 6379
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "tokens:"
	}
}

// applyEnv overrides file values with TOKENAPI_* environment variables.
// Secrets are expected to arrive this way rather than through the file.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TOKENAPI_SERVER_HOST":       &c.Server.Host,
		"TOKENAPI_LOG_ENV":           &c.Log.Env,
		"TOKENAPI_LOG_LEVEL":         &c.Log.Level,
		"TOKENAPI_STORAGE_BACKEND":   &c.Storage.Backend,
		"TOKENAPI_POSTGRES_HOST":     &c.Storage.Postgres.Host,
		"TOKENAPI_POSTGRES_USER":     &c.Storage.Postgres.User,
		"TOKENAPI_POSTGRES_PASSWORD": &c.Storage.Postgres.Password,
		"TOKENAPI_POSTGRES_DBNAME":   &c.Storage.Postgres.DBName,
		"TOKENAPI_REDIS_HOST":        &c.Storage.Redis.Host,
		"TOKENAPI_REDIS_PASSWORD":    &c.Storage.Redis.Password,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKENAPI_SERVER_PORT":   &c.Server.Port,
		"TOKENAPI_POSTGRES_PORT": &c.Storage.Postgres.Port,
		"TOKENAPI_REDIS_PORT":    &c.Storage.Redis.Port,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// PostgresDSN renders the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	pg := c.Storage.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)
}
