package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
	}{
		{
			name: "every flag set",
			args: []string{"cmd", "-host", "remote.example", "-port", "9090", "-retries", "3", "-backoff", "10"},
			expected: &Config{
				ServerHost:     "remote.example",
				ServerPort:     9090,
				ConnectRetries: 3,
				ConnectBackoff: 10 * time.Second,
			},
		},
		{
			name: "no flags leaves defaults",
			args: []string{"cmd"},
			expected: &Config{
				ServerHost:     "127.0.0.1",
				ServerPort:     8080,
				ConnectRetries: 5,
				ConnectBackoff: 2 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
			os.Args = tt.args

			cfg := &Config{}
			cfg.LoadDefaults()
			require.NotPanics(t, func() { parseFlags(cfg) })
			require.Equal(t, tt.expected, cfg)
		})
	}
}
