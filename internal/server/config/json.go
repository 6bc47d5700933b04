package config

import (
	"encoding/json"
	"os"

	"github.com/serezk4/collectiond/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files; its fields are copied into Config after
// unmarshalling.
type JsonConfig struct {
	Port       int    `json:"port"`
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. Zero-valued fields in the file leave the existing
// Config value untouched, so a partial file overlays only what it sets.
// If the file cannot be read or contains invalid JSON, the function
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Port != 0 {
		config.Port = c.Port
	}
	if c.DBHost != "" {
		config.DBHost = c.DBHost
	}
	if c.DBPort != 0 {
		config.DBPort = c.DBPort
	}
	if c.DBName != "" {
		config.DBName = c.DBName
	}
	if c.DBUser != "" {
		config.DBUser = c.DBUser
	}
	if c.DBPassword != "" {
		config.DBPassword = c.DBPassword
	}
}
