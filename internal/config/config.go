package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env      string         `yaml:"env" env:"BASTA_ENV" env-default:"local"`
	LogLevel string         `yaml:"log_level" env:"BASTA_LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address" env:"BASTA_HTTP_ADDRESS" env-default:":8081"`
	PublicURL      string        `yaml:"public_url" env:"BASTA_PUBLIC_URL" env-default:"http://localhost:8081"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BASTA_REQUEST_TIMEOUT" env-default:"30s"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"BASTA_DB_DRIVER" env-default:"sqlite"`
	Path            string        `yaml:"path" env:"BASTA_DB_PATH" env-default:"basta.db"`
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxConns        int32         `yaml:"max_conns" env:"BASTA_DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"BASTA_DB_MIN_CONNS" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"BASTA_DB_MAX_CONN_LIFETIME" env-default:"30m"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"BASTA_DB_QUERY_TIMEOUT" env-default:"5s"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Audience  string `yaml:"audience" env:"BASTA_JWT_AUDIENCE" env-default:"authenticated"`
	Issuer    string `yaml:"issuer" env:"BASTA_JWT_ISSUER"`
}

// NotifyConfig selects the external brokers room changes are published to.
// An empty address disables that broker.
type NotifyConfig struct {
	NATSURL       string `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject   string `yaml:"nats_subject" env:"BASTA_NATS_SUBJECT" env-default:"basta.rooms"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	RedisChannel  string `yaml:"redis_channel" env:"BASTA_REDIS_CHANNEL" env-default:"basta:rooms"`
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// FetchPath returns the config file path from the flag value, falling back
// to CONFIG_PATH. An empty result means environment-only configuration.
func FetchPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG_PATH")
}

// Load reads the YAML file at path (when given) and the environment
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values cleanenv cannot
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// IsLocal reports whether the service runs in a developer environment
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "local"
}

// Usage describes every environment variable the config reads
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}
