package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/serezk4/collectiond/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. ConnectBackoff
// is specified in seconds; after parsing it is copied into the runtime
// Config as a time.Duration.
type JsonConfig struct {
	ServerHost        string `json:"server_host"`
	ServerPort        int    `json:"server_port"`
	ConnectRetries    int    `json:"connect_retries"`
	ConnectBackoffSec int    `json:"connect_backoff_seconds"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Zero-valued fields in the file leave the existing Config value untouched,
// so a partial file overlays only what it sets. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerHost != "" {
		cfg.ServerHost = jc.ServerHost
	}
	if jc.ServerPort != 0 {
		cfg.ServerPort = jc.ServerPort
	}
	if jc.ConnectRetries != 0 {
		cfg.ConnectRetries = jc.ConnectRetries
	}
	if jc.ConnectBackoffSec != 0 {
		cfg.ConnectBackoff = time.Duration(jc.ConnectBackoffSec) * time.Second
	}
}
