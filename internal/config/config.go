package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "default_secret"

// Config holds all configuration for the application
type Config struct {
	AppMode        string `env:"APP_MODE" envDefault:"dev"`
	Port           string `env:"PORT" envDefault:"3000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	// Database and JWT are read with the DEV_ or PROD_ prefix of the active mode
	Database *DatabaseConfig
	JWT      *JWTConfig

	Revocation RevocationConfig
	Seed       SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"mysql"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"root"`
	Password string `env:"DB_PASS"`
	DBName   string `env:"DB_NAME" envDefault:"salesforge"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// JWTConfig holds access token configuration
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET" envDefault:"default_secret"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// RevocationConfig selects where logged-out tokens are remembered
type RevocationConfig struct {
	Backend       string `env:"REVOCATION_BACKEND" envDefault:"memory"`
	Sweep         string `env:"REVOCATION_SWEEP" envDefault:"@every 10m"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"salesforge:revoked:"`
}

// SeedConfig holds the bootstrap accounts created on an empty user table
type SeedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	SalesEmail    string `env:"SEED_SALES_EMAIL"`
	SalesPassword string `env:"SEED_SALES_PASSWORD"`
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := Parse(nil)
	if err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = cfg
	return cfg, nil
}

// Parse builds a Config from environment. A nil map reads the process environment.
func Parse(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// trim spaces for Windows compatibility
	cfg.AppMode = strings.TrimSpace(cfg.AppMode)
	if cfg.AppMode != "dev" && cfg.AppMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", cfg.AppMode)
	}

	opts := env.Options{Environment: environment, Prefix: cfg.modePrefix()}
	cfg.Database = &DatabaseConfig{}
	if err := env.ParseWithOptions(cfg.Database, opts); err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	cfg.JWT = &JWTConfig{}
	if err := env.ParseWithOptions(cfg.JWT, opts); err != nil {
		return nil, fmt.Errorf("failed to parse jwt config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid %sDB_DRIVER: '%s' (must be memory, mysql or postgres)", c.modePrefix(), c.Database.Driver)
	}

	switch c.Revocation.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid REVOCATION_BACKEND: '%s' (must be memory or redis)", c.Revocation.Backend)
	}

	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%sJWT_TTL must be positive", c.modePrefix())
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("%sJWT_SECRET must not be empty", c.modePrefix())
	}
	if c.IsProd() && (c.JWT.Secret == defaultJWTSecret || len(c.JWT.Secret) < 32) {
		return fmt.Errorf("PROD_JWT_SECRET must be set to a random value of at least 32 characters")
	}
	return nil
}

func (c *Config) modePrefix() string {
	if c.AppMode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:3000"
	}
	return c.AllowedOrigins
}
