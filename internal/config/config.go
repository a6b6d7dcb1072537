package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	SSLMode        string
	RedisHost      string
	RedisPort      string
	NatsHost       string
	NatsPort       string
	ApiPort        string
	ApiEnabled     string
	LoanPeriodDays int
}

// New loads and validates configuration from environment variables.
// HTTP server is optional: if BIBLIO_API_ENABLED != "true", ApiAddr() returns
// an error and the HTTP server simply won't start. NATS is optional the same
// way: with no BIBLIO_NATS_HOST the bus, command handler and audit worker are
// not wired.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:         os.Getenv("BIBLIO_POSTGRES_USER"),
		DBPass:         os.Getenv("BIBLIO_POSTGRES_PASSWORD"),
		DBHost:         os.Getenv("BIBLIO_POSTGRES_HOST"),
		DBPort:         os.Getenv("BIBLIO_POSTGRES_PORT"),
		DBName:         os.Getenv("BIBLIO_POSTGRES_DB"),
		SSLMode:        os.Getenv("BIBLIO_POSTGRES_SSLMODE"),
		RedisHost:      os.Getenv("BIBLIO_REDIS_HOST"),
		RedisPort:      os.Getenv("BIBLIO_REDIS_PORT"),
		NatsHost:       os.Getenv("BIBLIO_NATS_HOST"),
		NatsPort:       os.Getenv("BIBLIO_NATS_PORT"),
		ApiPort:        os.Getenv("BIBLIO_API_PORT"),
		ApiEnabled:     os.Getenv("BIBLIO_API_ENABLED"),
		LoanPeriodDays: getEnvInt("BIBLIO_LOAN_PERIOD_DAYS", 14),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: BIBLIO_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis (availability cache)
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: BIBLIO_REDIS_HOST/PORT")
	}

	// Optional: nats — but host and port must come as a pair.
	if (cfg.NatsHost == "") != (cfg.NatsPort == "") {
		return nil, fmt.Errorf("BIBLIO_NATS_HOST and BIBLIO_NATS_PORT must be set together")
	}

	if cfg.LoanPeriodDays <= 0 {
		return nil, fmt.Errorf("BIBLIO_LOAN_PERIOD_DAYS must be positive, got %d", cfg.LoanPeriodDays)
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// NatsEnabled reports whether a NATS endpoint was configured.
func (c *Config) NatsEnabled() bool {
	return c.NatsHost != ""
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

// ApiAddr returns the HTTP listen address if the API is enabled.
// Returns an error if BIBLIO_API_ENABLED != "true" — callers should skip
// starting the HTTP server.
func (c *Config) ApiAddr() (string, error) {
	if c.ApiEnabled == "true" {
		if c.ApiPort == "" {
			return "", fmt.Errorf("BIBLIO_API_PORT is required when BIBLIO_API_ENABLED=true")
		}
		return ":" + c.ApiPort, nil
	}
	return "", fmt.Errorf("HTTP API is disabled (BIBLIO_API_ENABLED != true)")
}

// LoanPeriod returns the configured lending window.
func (c *Config) LoanPeriod() time.Duration {
	return time.Duration(c.LoanPeriodDays) * 24 * time.Hour
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}
