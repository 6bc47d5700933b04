// Package config handles configuration for the server component,
// including defaults, environment variables, an optional JSON overlay, and
// command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds runtime settings for the collectiond server.
//
// Fields:
//   - Port: TCP port the connection manager listens on.
//   - DBHost / DBPort / DBName / DBUser / DBPassword: PostgreSQL connection
//     parameters used to build the DSN passed to the persistence gateway.
type Config struct {
	Port       int
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.Port = 8080
	c.DBHost = "localhost"
	c.DBPort = 5432
	c.DBName = "collectiond"
	c.DBUser = "postgres"
	c.DBPassword = "postgres"
}

// parseEnv overlays Config with values from port6, DB_HOST, DB_PORT,
// DB_NAME, DB_USER and DB_PASSWORD, leaving defaults in place for anything
// unset or malformed.
func (c *Config) parseEnv() {
	if v := os.Getenv("port6"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.DBHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.DBPort = p
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.DBName = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.DBUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DBPassword = v
	}
}

// DSN builds the Postgres connection string the persistence gateway opens.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, then from an optional JSON file, and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.parseEnv()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
