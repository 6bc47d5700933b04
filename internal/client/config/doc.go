// Package config loads runtime configuration for the collectiond client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-host string    server host
//	-port int       server TCP port
//	-retries int    number of connect retries
//	-backoff int    backoff between connect retries, in seconds
//
// # JSON schema
//
//	{
//	  "server_host": "127.0.0.1",
//	  "server_port": 8080,
//	  "connect_retries": 5,
//	  "connect_backoff_seconds": 2
//	}
//
// Primary API
//
//   - type Config                   — holds ServerHost, ServerPort, ConnectRetries, ConnectBackoff
//   - func LoadConfig() *Config     — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults() — sets sensible defaults
package config
