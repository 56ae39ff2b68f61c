package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverREST     = "rest"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite"
)

// ValidDrivers lists the supported backend drivers.
var ValidDrivers = []string{DriverREST, DriverMySQL, DriverPostgres, DriverPGX, DriverSQLite}

// Config holds the librarian service configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig selects where the library tables live.
type BackendConfig struct {
	Driver  string `yaml:"driver"`   // rest, mysql, postgres, pgx, sqlite
	URL     string `yaml:"url"`      // hosted backend base URL (rest)
	APIKey  string `yaml:"api_key"`  // hosted backend anon key (rest)
	DSN     string `yaml:"dsn"`      // SQL drivers
	Timeout string `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	HTTPAddr        string `yaml:"http_addr"`
	GRPCAddr        string `yaml:"grpc_addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type SessionConfig struct {
	TTL string `yaml:"ttl"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Driver:  DriverREST,
			Timeout: "10s",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			ShutdownTimeout: "10s",
		},
		Session: SessionConfig{
			TTL: "24h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. A missing file or an empty path leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BACKEND_DRIVER"); v != "" {
		c.Backend.Driver = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("BACKEND_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("SQL_DSN"); v != "" {
		c.Backend.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		c.Session.TTL = v
	}
}

// IsSQL reports whether the backend is reached over database/sql.
func (c *Config) IsSQL() bool {
	return c.Backend.Driver != DriverREST
}

// GetSessionTTL returns the session TTL, 24h when unset or malformed.
func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 24*time.Hour)
}

func (c *Config) GetBackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 10*time.Second)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// Validate checks the settings each driver requires.
func (c *Config) Validate() error {
	if !slices.Contains(ValidDrivers, c.Backend.Driver) {
		return fmt.Errorf("invalid backend driver: %s (valid: %v)", c.Backend.Driver, ValidDrivers)
	}

	if c.IsSQL() {
		if c.Backend.DSN == "" {
			return fmt.Errorf("SQL_DSN is required for the %s driver", c.Backend.Driver)
		}
	} else {
		var missing []string
		if c.Backend.URL == "" {
			missing = append(missing, "BACKEND_URL")
		}
		if c.Backend.APIKey == "" {
			missing = append(missing, "BACKEND_API_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing backend configuration: %v", missing)
		}
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address not configured (set REDIS_ADDR)")
	}
	if c.Session.TTL != "" {
		if d, err := time.ParseDuration(c.Session.TTL); err != nil || d <= 0 {
			return fmt.Errorf("invalid session ttl: %q", c.Session.TTL)
		}
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
