package config

import "time"

// Config holds runtime settings for the collectiond client.
//
// Fields:
//   - ServerHost / ServerPort: address of the server's TCP listener.
//   - ConnectRetries: how many times Connect retries a failed dial.
//   - ConnectBackoff: delay between connect retries.
type Config struct {
	ServerHost     string
	ServerPort     int
	ConnectRetries int
	ConnectBackoff time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerHost = "127.0.0.1"
	c.ServerPort = 8080
	c.ConnectRetries = 5
	c.ConnectBackoff = 2 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
